package integrations

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os"

	"github.com/gabriel-vasile/mimetype"
	"github.com/kerbaras/comics/pkg/data"
	_ "golang.org/x/image/webp"
)

// pageImage is a decoded-enough page ready to be embedded in a document.
type pageImage struct {
	Content []byte
	Type    string // "JPG" or "PNG"
	Ext     string
	Width   int
	Height  int
}

// loadPageImage sniffs the real format of a page and normalizes it: JPEG is
// kept as is, everything else decodable is re-encoded as PNG.
func loadPageImage(path string) (*pageImage, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w: %w", path, data.ErrFileSystem, err)
	}

	mime := mimetype.Detect(content)
	switch {
	case mime.Is("image/jpeg"):
		cfg, _, err := image.DecodeConfig(bytes.NewReader(content))
		if err != nil {
			return nil, fmt.Errorf("corrupt jpeg %s: %w: %w", path, data.ErrEncoding, err)
		}
		return &pageImage{Content: content, Type: "JPG", Ext: ".jpg", Width: cfg.Width, Height: cfg.Height}, nil

	case mime.Is("image/png"), mime.Is("image/gif"), mime.Is("image/webp"):
		img, _, err := image.Decode(bytes.NewReader(content))
		if err != nil {
			return nil, fmt.Errorf("corrupt image %s: %w: %w", path, data.ErrEncoding, err)
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("failed to re-encode %s: %w: %w", path, data.ErrEncoding, err)
		}
		b := img.Bounds()
		return &pageImage{Content: buf.Bytes(), Type: "PNG", Ext: ".png", Width: b.Dx(), Height: b.Dy()}, nil

	default:
		return nil, fmt.Errorf("unsupported image type %s for %s: %w", mime.String(), path, data.ErrEncoding)
	}
}
