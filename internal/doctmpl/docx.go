// Package doctmpl generates documents from docx templates. Templates mark
// fields as {{field_name}} in body text and table cells; filling is a
// textual replacement inside the document XML so both render the same way.
package doctmpl

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Filler renders a template with a set of field values.
type Filler interface {
	Fill(templatePath, outputPath string, fields map[string]string) error
}

// DocxFiller fills docx templates in place of their placeholders.
// Placeholders with no matching field are left untouched so a half-filled
// document is visibly half-filled.
type DocxFiller struct{}

// Parts of the archive that carry visible text.
var textParts = map[string]bool{
	"word/document.xml": true,
	"word/header1.xml":  true,
	"word/header2.xml":  true,
	"word/header3.xml":  true,
	"word/footer1.xml":  true,
	"word/footer2.xml":  true,
	"word/footer3.xml":  true,
}

func (DocxFiller) Fill(templatePath, outputPath string, fields map[string]string) error {
	reader, err := zip.OpenReader(templatePath)
	if err != nil {
		return fmt.Errorf("open template %s: %w", templatePath, err)
	}
	defer reader.Close()

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create output %s: %w", outputPath, err)
	}
	defer out.Close()

	writer := zip.NewWriter(out)
	for _, entry := range reader.File {
		if err := copyEntry(writer, entry, fields); err != nil {
			writer.Close()
			return fmt.Errorf("write %s: %w", entry.Name, err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("finalize %s: %w", outputPath, err)
	}
	return nil
}

func copyEntry(writer *zip.Writer, entry *zip.File, fields map[string]string) error {
	rc, err := entry.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	w, err := writer.CreateHeader(&zip.FileHeader{
		Name:   entry.Name,
		Method: entry.Method,
	})
	if err != nil {
		return err
	}

	if !textParts[entry.Name] {
		_, err = io.Copy(w, rc)
		return err
	}

	raw, err := io.ReadAll(rc)
	if err != nil {
		return err
	}
	_, err = w.Write([]byte(ReplaceFields(string(raw), fields)))
	return err
}

// Word splits placeholder text across runs when spell-check or formatting
// boundaries land mid-token. The pattern stitches a "{{..." fragment back
// together with the run that continues it.
var splitPlaceholderPattern = regexp.MustCompile(`(?s)(\{\{[^{}<]*)</w:t>(?:\s*</w:r>\s*<w:r[^>]*>(?:<w:rPr>.*?</w:rPr>)?)?\s*<w:t[^>]*>`)

func mergeSplitPlaceholders(xmlText string) string {
	for {
		merged := splitPlaceholderPattern.ReplaceAllString(xmlText, "$1")
		if merged == xmlText {
			return xmlText
		}
		xmlText = merged
	}
}

// ReplaceFields substitutes every {{name}} placeholder present in fields.
// Values are XML-escaped; unknown placeholders survive unchanged.
// The literal "#{{Invoice_Number}}" loses its # too, so templates can show
// "#{{Invoice_Number}}" and receive values that carry their own prefix.
func ReplaceFields(xmlText string, fields map[string]string) string {
	xmlText = mergeSplitPlaceholders(xmlText)
	if v, ok := fields["Invoice_Number"]; ok {
		xmlText = strings.ReplaceAll(xmlText, "#{{Invoice_Number}}", escapeXML(v))
	}
	pairs := make([]string, 0, len(fields)*2)
	for name, value := range fields {
		pairs = append(pairs, "{{"+name+"}}", escapeXML(value))
	}
	return strings.NewReplacer(pairs...).Replace(xmlText)
}

func escapeXML(s string) string {
	return strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&apos;",
	).Replace(s)
}
