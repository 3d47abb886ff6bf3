// Package parser reads card lists out of uploaded or local documents.
package parser

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FileType represents the type of document file
type FileType int

const (
	TypeUnknown FileType = iota
	TypePDF
	TypeDOCX
	TypeText
)

func (t FileType) String() string {
	if f, ok := formats[t]; ok {
		return f.name
	}
	return "unknown"
}

// MaxFileSize is the maximum allowed file size (10MB)
const MaxFileSize = 10 * 1024 * 1024

var (
	// ErrUnsupportedType is returned for extensions no parser handles
	ErrUnsupportedType = errors.New("unsupported file type (only .txt, .pdf and .docx are supported)")
	// ErrFileTooLarge is returned for documents above MaxFileSize
	ErrFileTooLarge = errors.New("file too large")
	// ErrNoText is returned when a document contains no readable text
	ErrNoText = errors.New("no text content found")
)

// format ties a file type to its path and upload readers
type format struct {
	name        string
	ext         string
	parseFile   func(path string) (string, error)
	parseUpload func(r io.Reader, filename string, size int64) (string, error)
}

var formats = map[FileType]format{
	TypePDF: {
		name:      "PDF",
		ext:       ".pdf",
		parseFile: ParsePDF,
		parseUpload: func(r io.Reader, _ string, size int64) (string, error) {
			return ParsePDFFromReader(r, size)
		},
	},
	TypeDOCX: {
		name:      "DOCX",
		ext:       ".docx",
		parseFile: ParseDOCX,
		parseUpload: func(r io.Reader, filename string, _ int64) (string, error) {
			return ParseDOCXFromReader(r, filename)
		},
	},
	TypeText: {
		name:      "text",
		ext:       ".txt",
		parseFile: ParseText,
		parseUpload: func(r io.Reader, _ string, size int64) (string, error) {
			return ParseTextFromReader(r, size)
		},
	},
}

// DetectFileType determines the file type based on extension
func DetectFileType(filename string) FileType {
	ext := strings.ToLower(filepath.Ext(filename))
	for t, f := range formats {
		if f.ext == ext {
			return t
		}
	}
	return TypeUnknown
}

func tooLarge(size int64) error {
	return fmt.Errorf("%w: %d bytes (max: %d bytes)", ErrFileTooLarge, size, MaxFileSize)
}

// ValidateFileSize checks if a file is within the size limit
func ValidateFileSize(filePath string) error {
	info, err := os.Stat(filePath)
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}

	if info.Size() > MaxFileSize {
		return tooLarge(info.Size())
	}

	return nil
}

var filenameRules = []struct {
	bad     func(string) bool
	message string
}{
	{func(s string) bool { return strings.Contains(s, "..") }, "filename contains path traversal: .."},
	{func(s string) bool { return strings.HasPrefix(s, "/") || strings.HasPrefix(s, `\`) }, "filename cannot be an absolute path"},
	{func(s string) bool { return strings.ContainsRune(s, '\x00') }, "filename contains null byte"},
	{func(s string) bool { return strings.ContainsAny(s, "\r\n") }, "filename contains newline character"},
}

// ValidateFilename rejects upload names that could escape the temp directory
func ValidateFilename(filename string) error {
	for _, rule := range filenameRules {
		if rule.bad(filename) {
			return errors.New(rule.message)
		}
	}
	return nil
}

// ParseDocument reads the text of a local document, choosing the parser from the extension
func ParseDocument(filePath string) (string, error) {
	if _, err := os.Stat(filePath); err != nil {
		return "", fmt.Errorf("file not found: %w", err)
	}

	if err := ValidateFileSize(filePath); err != nil {
		return "", err
	}

	f, ok := formats[DetectFileType(filePath)]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, filepath.Ext(filePath))
	}
	return f.parseFile(filePath)
}

// ParseUpload parses an uploaded document, choosing the parser from filename
func ParseUpload(reader io.Reader, filename string, size int64) (string, error) {
	if err := ValidateFilename(filename); err != nil {
		return "", fmt.Errorf("invalid filename: %w", err)
	}

	f, ok := formats[DetectFileType(filename)]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, filepath.Ext(filename))
	}
	return f.parseUpload(reader, filename, size)
}
