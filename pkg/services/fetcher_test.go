package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kerbaras/comics/pkg/data"
	"github.com/kerbaras/comics/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageFetcher_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/page.jpg":
			w.Header().Set("Content-Type", "image/jpeg")
			w.Write([]byte("jpeg bytes"))
		case "/moved.jpg":
			http.Redirect(w, r, "/page.jpg", http.StatusFound)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	fetcher := NewPageFetcher(utils.NewClient(5*time.Second, ""))
	dir := t.TempDir()

	t.Run("writes on success", func(t *testing.T) {
		dest := filepath.Join(dir, "0001.jpg")
		require.NoError(t, fetcher.Fetch(context.Background(), server.URL+"/page.jpg", dest))

		content, err := os.ReadFile(dest)
		require.NoError(t, err)
		assert.Equal(t, "jpeg bytes", string(content))
		assert.NoFileExists(t, dest+".part")
	})

	t.Run("no file on 404", func(t *testing.T) {
		dest := filepath.Join(dir, "0002.jpg")
		err := fetcher.Fetch(context.Background(), server.URL+"/missing.jpg", dest)

		assert.ErrorIs(t, err, data.ErrNotFound)
		assert.NoFileExists(t, dest)
		assert.NoFileExists(t, dest+".part")
	})

	t.Run("follows redirects", func(t *testing.T) {
		dest := filepath.Join(dir, "0003.jpg")
		require.NoError(t, fetcher.Fetch(context.Background(), server.URL+"/moved.jpg", dest))

		content, err := os.ReadFile(dest)
		require.NoError(t, err)
		assert.Equal(t, "jpeg bytes", string(content))
	})

	t.Run("unwritable destination", func(t *testing.T) {
		dest := filepath.Join(dir, "missing-dir", "0004.jpg")
		err := fetcher.Fetch(context.Background(), server.URL+"/page.jpg", dest)
		assert.ErrorIs(t, err, data.ErrFileSystem)
	})
}
