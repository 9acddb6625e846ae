// Package sheets reads and analyzes Google Sheets over the v4 values REST
// API. Reads go through OAuth when a stored token is available and fall
// back to an API key, which only works for link-shared sheets.
package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"sarabot/internal/domain"
)

const (
	sheetsAPIBase = "https://sheets.googleapis.com/v4/spreadsheets"
	sheetsScope   = "https://www.googleapis.com/auth/spreadsheets.readonly"
	docsScope     = "https://www.googleapis.com/auth/documents.readonly"
	driveScope    = "https://www.googleapis.com/auth/drive.metadata.readonly"
)

// Reader fetches a rectangular range from a spreadsheet.
type Reader interface {
	Read(ctx context.Context, sheetID, readRange string) (*domain.SheetData, error)
}

// HTTPReader talks to the Sheets REST API directly.
type HTTPReader struct {
	apiKey string
	source oauth2.TokenSource
	client *http.Client
	logger *slog.Logger
}

// ReaderConfig carries the two credential paths. TokenFile and
// CredentialsFile together enable OAuth; APIKey alone is enough for
// public sheets.
type ReaderConfig struct {
	APIKey          string
	TokenFile       string
	CredentialsFile string
	Logger          *slog.Logger
}

func NewHTTPReader(cfg ReaderConfig) (*HTTPReader, error) {
	r := &HTTPReader{
		apiKey: cfg.APIKey,
		client: &http.Client{Timeout: 30 * time.Second},
		logger: cfg.Logger,
	}
	if cfg.TokenFile != "" && cfg.CredentialsFile != "" {
		source, err := tokenSourceFromFiles(cfg.CredentialsFile, cfg.TokenFile)
		if err != nil {
			r.logger.Warn("OAuth unavailable, using API key only", "error", err)
		} else {
			r.source = source
		}
	}
	if r.source == nil && r.apiKey == "" {
		return nil, fmt.Errorf("sheets reader needs either OAuth files or an API key")
	}
	return r, nil
}

// HasOAuth reports whether reads will carry a bearer token.
func (r *HTTPReader) HasOAuth() bool { return r.source != nil }

// TokenSource exposes the OAuth source for collaborators that hit other
// Google APIs (Docs, Drive) with the same account. Nil without OAuth.
func (r *HTTPReader) TokenSource() oauth2.TokenSource { return r.source }

func tokenSourceFromFiles(credentialsFile, tokenFile string) (oauth2.TokenSource, error) {
	credBytes, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	conf, err := google.ConfigFromJSON(credBytes, sheetsScope, docsScope, driveScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	tokBytes, err := os.ReadFile(tokenFile)
	if err != nil {
		return nil, fmt.Errorf("read token: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(tokBytes, &tok); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	return conf.TokenSource(context.Background(), &tok), nil
}

type valuesResponse struct {
	Range  string  `json:"range"`
	Values [][]any `json:"values"`
}

// Read fetches readRange from sheetID. The first returned row becomes the
// header row; everything after it the data rows.
func (r *HTTPReader) Read(ctx context.Context, sheetID, readRange string) (*domain.SheetData, error) {
	u := fmt.Sprintf("%s/%s/values/%s", sheetsAPIBase, url.PathEscape(sheetID), url.PathEscape(readRange))
	if r.source == nil {
		u += "?key=" + url.QueryEscape(r.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	if r.source != nil {
		tok, err := r.source.Token()
		if err != nil {
			return nil, fmt.Errorf("refresh OAuth token: %w", err)
		}
		tok.SetAuthHeader(req)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sheets request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sheets API status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var vr valuesResponse
	if err := json.Unmarshal(body, &vr); err != nil {
		return nil, fmt.Errorf("decode sheets response: %w", err)
	}
	if len(vr.Values) == 0 {
		return nil, fmt.Errorf("sheet %s range %s is empty", sheetID, readRange)
	}

	data := &domain.SheetData{SheetID: sheetID}
	data.Headers = stringRow(vr.Values[0])
	for _, row := range vr.Values[1:] {
		data.Rows = append(data.Rows, stringRow(row))
	}
	r.logger.Debug("sheet read", "sheet", sheetID, "range", readRange, "rows", len(data.Rows))
	return data, nil
}

func stringRow(row []any) []string {
	out := make([]string, len(row))
	for i, cell := range row {
		switch v := cell.(type) {
		case string:
			out[i] = v
		case nil:
			out[i] = ""
		default:
			out[i] = fmt.Sprint(v)
		}
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
