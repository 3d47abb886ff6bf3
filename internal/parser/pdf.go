package parser

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ParsePDF extracts text content from a PDF file
func ParsePDF(filePath string) (string, error) {
	if err := ValidateFileSize(filePath); err != nil {
		return "", err
	}

	file, reader, err := pdf.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer file.Close()

	return extractPDFText(reader)
}

// ParsePDFFromReader extracts text from a PDF io.Reader (for uploaded files)
func ParsePDFFromReader(reader io.Reader, size int64) (string, error) {
	content, err := readLimited(reader, size)
	if err != nil {
		return "", fmt.Errorf("failed to read PDF content: %w", err)
	}

	pdfReader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("failed to parse PDF: %w", err)
	}

	return extractPDFText(pdfReader)
}

// extractPDFText joins the plain text of every page, one page per line block
func extractPDFText(reader *pdf.Reader) (string, error) {
	var textBuilder strings.Builder

	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		// Rows keep each printed line separate, which is what the card line format needs
		rows, err := page.GetTextByRow()
		if err != nil {
			continue
		}
		for _, row := range rows {
			for _, word := range row.Content {
				textBuilder.WriteString(word.S)
			}
			textBuilder.WriteString("\n")
		}
	}

	content := strings.TrimSpace(textBuilder.String())
	if len(content) == 0 {
		return "", fmt.Errorf("%w in PDF", ErrNoText)
	}

	return content, nil
}

// readLimited reads an upload into memory, refusing anything over MaxFileSize
func readLimited(reader io.Reader, size int64) ([]byte, error) {
	if size > MaxFileSize {
		return nil, tooLarge(size)
	}

	content, err := io.ReadAll(io.LimitReader(reader, MaxFileSize+1))
	if err != nil {
		return nil, err
	}

	if len(content) > MaxFileSize {
		return nil, tooLarge(int64(len(content)))
	}
	return content, nil
}
