package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const (
	driveFilesAPIBase = "https://www.googleapis.com/drive/v3/files"
	docsAPIBase       = "https://docs.googleapis.com/v1/documents"
)

// StatusDoc reads the team's status Google Doc. The doc is located by
// title through the Drive API on every read, so renumbered or recreated
// docs keep working as long as the title stays the same.
type StatusDoc struct {
	source oauth2.TokenSource
	title  string
	client *http.Client
	logger *slog.Logger

	driveBase string
	docsBase  string
}

func NewStatusDoc(source oauth2.TokenSource, title string, logger *slog.Logger) *StatusDoc {
	return &StatusDoc{
		source:    source,
		title:     title,
		client:    &http.Client{Timeout: 30 * time.Second},
		logger:    logger,
		driveBase: driveFilesAPIBase,
		docsBase:  docsAPIBase,
	}
}

type driveFilesResponse struct {
	Files []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"files"`
}

type docsDocument struct {
	Body struct {
		Content []struct {
			Paragraph *struct {
				Elements []struct {
					TextRun *struct {
						Content string `json:"content"`
					} `json:"textRun"`
				} `json:"elements"`
			} `json:"paragraph"`
		} `json:"content"`
	} `json:"body"`
}

// Read returns the full text of the status document.
func (d *StatusDoc) Read(ctx context.Context) (string, error) {
	docID, err := d.findByTitle(ctx)
	if err != nil {
		return "", err
	}

	body, err := d.get(ctx, d.docsBase+"/"+url.PathEscape(docID))
	if err != nil {
		return "", fmt.Errorf("read document %s: %w", docID, err)
	}

	var doc docsDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return "", fmt.Errorf("decode document: %w", err)
	}

	var b strings.Builder
	for _, elem := range doc.Body.Content {
		if elem.Paragraph == nil {
			continue
		}
		for _, pe := range elem.Paragraph.Elements {
			if pe.TextRun != nil {
				b.WriteString(pe.TextRun.Content)
			}
		}
	}
	text := strings.TrimSpace(b.String())
	d.logger.Debug("status doc read", "doc", docID, "bytes", len(text))
	return text, nil
}

func (d *StatusDoc) findByTitle(ctx context.Context) (string, error) {
	q := url.Values{}
	q.Set("q", fmt.Sprintf("name='%s' and mimeType='application/vnd.google-apps.document'",
		strings.ReplaceAll(d.title, "'", `\'`)))
	q.Set("fields", "files(id,name)")

	body, err := d.get(ctx, d.driveBase+"?"+q.Encode())
	if err != nil {
		return "", fmt.Errorf("search for %q: %w", d.title, err)
	}

	var fr driveFilesResponse
	if err := json.Unmarshal(body, &fr); err != nil {
		return "", fmt.Errorf("decode drive response: %w", err)
	}
	if len(fr.Files) == 0 {
		return "", fmt.Errorf("no document titled %q", d.title)
	}
	return fr.Files[0].ID, nil
}

func (d *StatusDoc) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	tok, err := d.source.Token()
	if err != nil {
		return nil, fmt.Errorf("refresh OAuth token: %w", err)
	}
	tok.SetAuthHeader(req)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google API status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}
	return body, nil
}
