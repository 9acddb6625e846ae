package doctmpl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const (
	driveUploadURL = "https://www.googleapis.com/upload/drive/v3/files?uploadType=multipart"
	driveFilesURL  = "https://www.googleapis.com/drive/v3/files"

	googleDocMIME = "application/vnd.google-apps.document"
	docxMIME      = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// PDFExporter converts a generated docx to PDF. Callers fall back to
// sharing the docx itself when export fails.
type PDFExporter interface {
	Export(ctx context.Context, docxPath string) (pdfPath string, err error)
}

// DriveExporter round-trips the docx through Google Drive: upload with
// conversion to a Google Doc, export that as PDF, then delete the
// temporary Doc. Needs an OAuth token with Drive file scope.
type DriveExporter struct {
	source oauth2.TokenSource
	client *http.Client
	logger *slog.Logger
}

func NewDriveExporter(source oauth2.TokenSource, logger *slog.Logger) *DriveExporter {
	return &DriveExporter{
		source: source,
		client: &http.Client{Timeout: 60 * time.Second},
		logger: logger,
	}
}

func (e *DriveExporter) Export(ctx context.Context, docxPath string) (string, error) {
	if e.source == nil {
		return "", fmt.Errorf("pdf export needs OAuth credentials")
	}

	fileID, err := e.upload(ctx, docxPath)
	if err != nil {
		return "", fmt.Errorf("upload to Drive: %w", err)
	}
	// The converted Doc is scratch space; drop it no matter how export goes.
	defer e.delete(ctx, fileID)

	pdfPath := strings.TrimSuffix(docxPath, filepath.Ext(docxPath)) + ".pdf"
	if err := e.exportPDF(ctx, fileID, pdfPath); err != nil {
		return "", fmt.Errorf("export PDF: %w", err)
	}
	return pdfPath, nil
}

func (e *DriveExporter) upload(ctx context.Context, docxPath string) (string, error) {
	content, err := os.ReadFile(docxPath)
	if err != nil {
		return "", err
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	metaHeader := textproto.MIMEHeader{}
	metaHeader.Set("Content-Type", "application/json; charset=UTF-8")
	metaPart, err := mw.CreatePart(metaHeader)
	if err != nil {
		return "", err
	}
	meta := map[string]string{
		"name":     strings.TrimSuffix(filepath.Base(docxPath), filepath.Ext(docxPath)),
		"mimeType": googleDocMIME,
	}
	if err := json.NewEncoder(metaPart).Encode(meta); err != nil {
		return "", err
	}

	fileHeader := textproto.MIMEHeader{}
	fileHeader.Set("Content-Type", docxMIME)
	filePart, err := mw.CreatePart(fileHeader)
	if err != nil {
		return "", err
	}
	if _, err := filePart.Write(content); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, driveUploadURL, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "multipart/related; boundary="+mw.Boundary())
	if err := e.authorize(req); err != nil {
		return "", err
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("drive upload status %d: %s", resp.StatusCode, msg)
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", err
	}
	if created.ID == "" {
		return "", fmt.Errorf("drive upload returned no file id")
	}
	return created.ID, nil
}

func (e *DriveExporter) exportPDF(ctx context.Context, fileID, pdfPath string) error {
	u := fmt.Sprintf("%s/%s/export?mimeType=application/pdf", driveFilesURL, fileID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	if err := e.authorize(req); err != nil {
		return err
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("drive export status %d: %s", resp.StatusCode, msg)
	}

	out, err := os.Create(pdfPath)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, resp.Body)
	return err
}

func (e *DriveExporter) delete(ctx context.Context, fileID string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, driveFilesURL+"/"+fileID, nil)
	if err != nil {
		return
	}
	if err := e.authorize(req); err != nil {
		return
	}
	resp, err := e.client.Do(req)
	if err != nil {
		e.logger.Warn("could not delete temporary Drive file", "fileId", fileID, "error", err)
		return
	}
	resp.Body.Close()
}

func (e *DriveExporter) authorize(req *http.Request) error {
	tok, err := e.source.Token()
	if err != nil {
		return fmt.Errorf("refresh OAuth token: %w", err)
	}
	tok.SetAuthHeader(req)
	return nil
}
