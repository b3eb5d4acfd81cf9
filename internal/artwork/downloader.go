// ABOUTME: Slideshow artwork fetching and saving
// ABOUTME: Downloads images into visual metadata and writes played visuals to disk
package artwork

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/Resonate-Protocol/timeshift-go/internal/version"
	"github.com/Resonate-Protocol/timeshift-go/pkg/metadata"
	log "github.com/sirupsen/logrus"
)

// maxImageSize bounds a downloaded slideshow image
const maxImageSize = 4 << 20

// Downloader fetches slideshow images and keeps a file cache
type Downloader struct {
	cacheDir    string
	currentPath string
	client      *http.Client
}

// NewDownloader creates a downloader caching into dir. An empty dir uses a
// directory under os.TempDir().
func NewDownloader(dir string) (*Downloader, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "timeshift-artwork")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	return &Downloader{
		cacheDir: dir,
		client:   &http.Client{},
	}, nil
}

// Fetch downloads url as a slideshow image
func (d *Downloader) Fetch(ctx context.Context, url string) (*metadata.Visual, error) {
	if url == "" {
		return nil, fmt.Errorf("no artwork url")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid artwork url: %w", err)
	}
	req.Header.Set("User-Agent", version.UserAgent())

	log.Printf("Downloading artwork: %s", url)
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download artwork: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("artwork download failed: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read artwork: %w", err)
	}
	if len(data) > maxImageSize {
		return nil, fmt.Errorf("artwork larger than %d bytes", maxImageSize)
	}

	name := path.Base(strings.Split(url, "?")[0])
	mimeType := resp.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = mime.TypeByExtension(getExtension(url))
	}

	return &metadata.Visual{ContentName: name, MimeType: mimeType, Data: data}, nil
}

// Save writes v to the cache, keyed by its content, and returns the path
func (d *Downloader) Save(v *metadata.Visual) (string, error) {
	hash := sha256.Sum256(v.Data)
	cachePath := filepath.Join(d.cacheDir, fmt.Sprintf("%x%s", hash[:8], extensionFor(v)))

	if _, err := os.Stat(cachePath); err == nil {
		log.Debugf("Artwork cache hit: %s", cachePath)
		d.currentPath = cachePath
		return cachePath, nil
	}

	if err := os.WriteFile(cachePath, v.Data, 0o644); err != nil {
		os.Remove(cachePath)
		return "", fmt.Errorf("failed to save artwork: %w", err)
	}

	log.Debugf("Artwork saved: %s", cachePath)
	d.currentPath = cachePath
	return cachePath, nil
}

// CurrentPath returns the path of the last saved image
func (d *Downloader) CurrentPath() string {
	return d.currentPath
}

func extensionFor(v *metadata.Visual) string {
	if ext := filepath.Ext(v.ContentName); ext != "" {
		return ext
	}
	if exts, _ := mime.ExtensionsByType(v.MimeType); len(exts) > 0 {
		return exts[0]
	}
	return ".jpg"
}

// getExtension extracts file extension from URL
func getExtension(url string) string {
	url = strings.Split(url, "?")[0]

	ext := filepath.Ext(url)
	if ext == "" {
		ext = ".jpg"
	}
	return ext
}

// Cleanup removes the cache directory
func (d *Downloader) Cleanup() error {
	return os.RemoveAll(d.cacheDir)
}
