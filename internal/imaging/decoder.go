// Package imaging turns uploaded or dropped image files into data URIs
// that can be stored directly on a card meaning.
package imaging

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// MaxImageSize is the largest image accepted (5MB)
const MaxImageSize = 5 * 1024 * 1024

var (
	// ErrUnsupportedImage is returned for content that is not a supported image
	ErrUnsupportedImage = errors.New("unsupported image")
	// ErrImageTooLarge is returned for images above MaxImageSize
	ErrImageTooLarge = errors.New("image too large")
)

// allowed maps sniffed MIME types to the image.DecodeConfig format name
var allowed = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpeg",
	"image/gif":  "gif",
	"image/webp": "webp",
	"image/bmp":  "bmp",
}

// ImageDecoder converts raw file bytes into a displayable data URI
type ImageDecoder interface {
	Decode(ctx context.Context, data []byte) (string, error)
}

// DataURIDecoder validates image bytes by content and encodes them as a base64 data URI
type DataURIDecoder struct {
	MaxSize int
}

// NewDecoder returns a decoder with the default size limit
func NewDecoder() *DataURIDecoder {
	return &DataURIDecoder{MaxSize: MaxImageSize}
}

// Decode checks the bytes really are an image and returns a data URI for them.
// File names and client supplied content types are never consulted.
func (d *DataURIDecoder) Decode(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	limit := d.MaxSize
	if limit <= 0 {
		limit = MaxImageSize
	}
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty file", ErrUnsupportedImage)
	}
	if len(data) > limit {
		return "", fmt.Errorf("%w: %d bytes (max: %d bytes)", ErrImageTooLarge, len(data), limit)
	}

	mime, err := Sniff(data)
	if err != nil {
		return "", err
	}

	var b bytes.Buffer
	b.Grow(len("data:;base64,") + len(mime) + base64.StdEncoding.EncodedLen(len(data)))
	b.WriteString("data:")
	b.WriteString(mime)
	b.WriteString(";base64,")
	b.WriteString(base64.StdEncoding.EncodeToString(data))

	if err := ctx.Err(); err != nil {
		return "", err
	}
	return b.String(), nil
}

// Sniff returns the MIME type of data if it is a supported image with a decodable header
func Sniff(data []byte) (string, error) {
	mime := http.DetectContentType(data)
	format, ok := allowed[mime]
	if !ok {
		return "", fmt.Errorf("%w: detected %s", ErrUnsupportedImage, mime)
	}

	_, decoded, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %s header: %v", ErrUnsupportedImage, format, err)
	}
	if decoded != format {
		return "", fmt.Errorf("%w: content is %s but decodes as %s", ErrUnsupportedImage, format, decoded)
	}

	return mime, nil
}

// ReadFile reads an image file from disk, refusing anything above limit bytes
func ReadFile(path string, limit int) ([]byte, error) {
	if limit <= 0 {
		limit = MaxImageSize
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	return ReadLimited(f, limit)
}

// ReadLimited reads at most limit bytes from r and fails if there is more
func ReadLimited(r io.Reader, limit int) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, int64(limit)+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if len(data) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrImageTooLarge, limit)
	}
	return data, nil
}
