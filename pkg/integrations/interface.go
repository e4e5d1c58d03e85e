package integrations

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/kerbaras/comics/pkg/data"
)

// Metadata describes the issue being packaged.
type Metadata struct {
	Comic string
	Issue string
}

// Title is the human readable title embedded in document formats.
func (m Metadata) Title() string {
	if m.Issue == "" || m.Issue == m.Comic {
		return m.Comic
	}
	return fmt.Sprintf("%s %s", m.Comic, m.Issue)
}

// Packager bundles the page files of a staging directory into one archive.
type Packager interface {
	Package(stagingDir, outputPath string, meta Metadata) error
}

// NewPackager returns the packager for an output format.
func NewPackager(format data.OutputFormat) (Packager, error) {
	switch format {
	case data.FormatCBZ:
		return &CBZPackager{}, nil
	case data.FormatPDF:
		return &PDFPackager{DPI: DefaultDPI}, nil
	case data.FormatEPUB:
		return &EPubPackager{}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q: %w", format, data.ErrParsing)
	}
}

// partialSuffix marks files that are still being written.
const partialSuffix = ".part"

// stagedFiles lists the regular files directly inside dir, in directory
// order. Unfinished downloads are ignored.
func stagedFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read staging directory: %w: %w", data.ErrFileSystem, err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() || strings.HasSuffix(entry.Name(), partialSuffix) {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no pages in %s: %w", dir, data.ErrFileSystem)
	}
	return files, nil
}

// writeFile writes an archive next to outputPath and renames it into place,
// so an interrupted run never leaves something that looks like a finished
// archive.
func writeFile(outputPath string, write func(w io.Writer) error) error {
	tmpPath := outputPath + partialSuffix
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w: %w", data.ErrFileSystem, err)
	}

	if err := write(f); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close output file: %w: %w", data.ErrFileSystem, err)
	}
	if err := os.Rename(tmpPath, outputPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to move archive into place: %w: %w", data.ErrFileSystem, err)
	}
	return nil
}
