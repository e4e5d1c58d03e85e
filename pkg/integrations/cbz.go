package integrations

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/kerbaras/comics/pkg/data"
	"github.com/klauspost/compress/zip"
)

// CBZPackager writes a comic book archive: a zip of the page files under
// their bare names, deflate compressed.
type CBZPackager struct{}

func (p *CBZPackager) Package(stagingDir, outputPath string, meta Metadata) error {
	files, err := stagedFiles(stagingDir)
	if err != nil {
		return err
	}

	return writeFile(outputPath, func(w io.Writer) error {
		zw := zip.NewWriter(w)
		zw.SetComment(meta.Title())
		for _, file := range files {
			if err := addZipEntry(zw, file); err != nil {
				zw.Close()
				return err
			}
		}
		if err := zw.Close(); err != nil {
			return fmt.Errorf("failed to finish archive: %w: %w", data.ErrFileSystem, err)
		}
		return nil
	})
}

func addZipEntry(zw *zip.Writer, path string) error {
	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open page: %w: %w", data.ErrFileSystem, err)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat page: %w: %w", data.ErrFileSystem, err)
	}
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("failed to build zip header: %w: %w", data.ErrFileSystem, err)
	}
	header.Name = filepath.Base(path)
	header.Method = zip.Deflate

	dst, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("failed to add %s: %w: %w", header.Name, data.ErrFileSystem, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to write %s: %w: %w", header.Name, data.ErrFileSystem, err)
	}
	return nil
}
