package integrations

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"

	"github.com/go-pdf/fpdf"
	"github.com/kerbaras/comics/pkg/data"
)

// DefaultDPI is the resolution assumed when mapping pixels to paper.
const DefaultDPI = 300.0

const mmPerInch = 25.4

// PDFPackager writes one page per staged image, each page sized to the image
// at a fixed resolution.
type PDFPackager struct {
	DPI float64
}

// PageSize returns the page size in millimetres for an image of w x h pixels.
func (p *PDFPackager) PageSize(w, h int) fpdf.SizeType {
	dpi := p.DPI
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	return fpdf.SizeType{
		Wd: float64(w) / dpi * mmPerInch,
		Ht: float64(h) / dpi * mmPerInch,
	}
}

func (p *PDFPackager) Package(stagingDir, outputPath string, meta Metadata) error {
	files, err := stagedFiles(stagingDir)
	if err != nil {
		return err
	}

	doc := fpdf.NewCustom(&fpdf.InitType{UnitStr: "mm"})
	doc.SetTitle(meta.Title(), true)
	doc.SetCreator("comics", true)
	doc.SetMargins(0, 0, 0)
	doc.SetAutoPageBreak(false, 0)

	for _, file := range files {
		img, err := loadPageImage(file)
		if err != nil {
			return err
		}

		size := p.PageSize(img.Width, img.Height)
		doc.AddPageFormat("P", size)

		name := filepath.Base(file)
		opts := fpdf.ImageOptions{ImageType: img.Type}
		doc.RegisterImageOptionsReader(name, opts, bytes.NewReader(img.Content))
		doc.ImageOptions(name, 0, 0, size.Wd, size.Ht, false, opts, 0, "")
		if doc.Err() {
			return fmt.Errorf("failed to add %s: %w: %w", name, data.ErrEncoding, doc.Error())
		}
	}

	return writeFile(outputPath, func(w io.Writer) error {
		if err := doc.Output(w); err != nil {
			return fmt.Errorf("failed to write pdf: %w: %w", data.ErrEncoding, err)
		}
		return nil
	})
}
