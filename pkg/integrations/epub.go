package integrations

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/go-shiori/go-epub"
	"github.com/kerbaras/comics/pkg/data"
)

// EPubPackager writes a fixed page book with one section per page image.
type EPubPackager struct{}

func (p *EPubPackager) Package(stagingDir, outputPath string, meta Metadata) error {
	files, err := stagedFiles(stagingDir)
	if err != nil {
		return err
	}

	e, err := epub.NewEpub(meta.Title())
	if err != nil {
		return fmt.Errorf("failed to create EPub: %w: %w", data.ErrEncoding, err)
	}
	e.SetAuthor(meta.Comic)

	for i, file := range files {
		if !isImageFile(file) {
			return fmt.Errorf("unsupported page %s: %w", filepath.Base(file), data.ErrEncoding)
		}

		internalPath, err := e.AddImage(file, "")
		if err != nil {
			return fmt.Errorf("failed to add image %s: %w: %w", filepath.Base(file), data.ErrEncoding, err)
		}
		if i == 0 {
			e.SetCover(internalPath, "")
		}

		body := fmt.Sprintf(
			`<div class="page"><img src="%s" alt="Page %d" style="width:100%%;height:auto;"/></div>`,
			internalPath, i+1,
		)
		if _, err := e.AddSection(body, fmt.Sprintf("Page %d", i+1), "", ""); err != nil {
			return fmt.Errorf("failed to add section: %w: %w", data.ErrEncoding, err)
		}
	}

	return writeFile(outputPath, func(w io.Writer) error {
		if _, err := e.WriteTo(w); err != nil {
			return fmt.Errorf("failed to write EPub: %w: %w", data.ErrEncoding, err)
		}
		return nil
	})
}

// isImageFile checks if a file has an image extension
func isImageFile(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return ext == ".jpg" || ext == ".jpeg" || ext == ".png" || ext == ".gif" || ext == ".webp"
}
