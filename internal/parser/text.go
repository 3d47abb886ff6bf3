package parser

import (
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"
)

// ParseText reads a plain UTF-8 text file
func ParseText(filePath string) (string, error) {
	if err := ValidateFileSize(filePath); err != nil {
		return "", err
	}

	content, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read text file: %w", err)
	}
	return decodeText(content)
}

// ParseTextFromReader reads plain text from an upload
func ParseTextFromReader(reader io.Reader, size int64) (string, error) {
	content, err := readLimited(reader, size)
	if err != nil {
		return "", fmt.Errorf("failed to read text content: %w", err)
	}
	return decodeText(content)
}

func decodeText(content []byte) (string, error) {
	content = []byte(strings.TrimPrefix(string(content), "\ufeff"))
	if !utf8.Valid(content) {
		return "", fmt.Errorf("text file is not valid UTF-8")
	}

	text := strings.TrimSpace(strings.ReplaceAll(string(content), "\r\n", "\n"))
	if text == "" {
		return "", fmt.Errorf("%w in file", ErrNoText)
	}
	return text, nil
}
