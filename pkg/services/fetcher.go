package services

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/kerbaras/comics/pkg/data"
	"github.com/kerbaras/comics/pkg/utils"
)

// Fetcher retrieves one page image into a file.
type Fetcher interface {
	Fetch(ctx context.Context, imageURL, dest string) error
}

// PageFetcher downloads images with the shared client. The destination is
// only created when the server answered with a success status.
type PageFetcher struct {
	client *utils.Client
}

func NewPageFetcher(client *utils.Client) *PageFetcher {
	return &PageFetcher{client: client}
}

func (f *PageFetcher) Fetch(ctx context.Context, imageURL, dest string) error {
	resp, err := f.client.Open(ctx, imageURL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	tmp := dest + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w: %w", tmp, data.ErrFileSystem, err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to download %s: %w: %w", imageURL, data.ErrNetwork, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write %s: %w: %w", tmp, data.ErrFileSystem, err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to move %s: %w: %w", dest, data.ErrFileSystem, err)
	}
	return nil
}
