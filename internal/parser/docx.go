package parser

import (
	"fmt"
	"html"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/nguyenthenguyen/docx"
)

// ParseDOCX extracts text content from a DOCX file
func ParseDOCX(filePath string) (string, error) {
	if err := ValidateFileSize(filePath); err != nil {
		return "", err
	}

	doc, err := docx.ReadDocxFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open DOCX: %w", err)
	}
	defer doc.Close()

	text := docxPlainText(doc.Editable().GetContent())
	if len(strings.TrimSpace(text)) == 0 {
		return "", fmt.Errorf("%w in DOCX", ErrNoText)
	}

	return strings.TrimSpace(text), nil
}

// ParseDOCXFromReader spools an upload to disk, since the docx reader only opens files
func ParseDOCXFromReader(reader io.Reader, filename string) (string, error) {
	tmpPath, err := spoolUpload(reader, filename)
	if err != nil {
		return "", err
	}
	defer os.Remove(tmpPath)

	return ParseDOCX(tmpPath)
}

// spoolUpload copies reader into a temp file named after filename, up to MaxFileSize
func spoolUpload(reader io.Reader, filename string) (string, error) {
	if err := ValidateFilename(filename); err != nil {
		return "", err
	}

	tempFile, err := os.CreateTemp("", "flipcards-*-"+filepath.Base(filename))
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer tempFile.Close()

	written, err := io.Copy(tempFile, io.LimitReader(reader, MaxFileSize+1))
	if err == nil && written > MaxFileSize {
		err = tooLarge(written)
	}
	if err != nil {
		os.Remove(tempFile.Name())
		return "", fmt.Errorf("failed to spool upload: %w", err)
	}

	return tempFile.Name(), nil
}

var (
	docxParagraphEnd = regexp.MustCompile(`</w:p>|<w:br/>|<w:br [^>]*/>`)
	docxTag          = regexp.MustCompile(`<[^>]+>`)
)

// docxPlainText turns document.xml into text with one line per paragraph
func docxPlainText(xml string) string {
	xml = docxParagraphEnd.ReplaceAllString(xml, "\n")
	text := docxTag.ReplaceAllString(xml, "")
	return html.UnescapeString(text)
}
