package fileutil

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"
)

// DefaultCoverWidth is the width covers are shrunk to when wider.
const DefaultCoverWidth = 600

// CoverDownloadOptions holds options for downloading cover images.
type CoverDownloadOptions struct {
	// URL is the source URL of the cover image
	URL string
	// OutputDir is the directory where the cover will be saved
	OutputDir string
	// Filename is the name of the cover file (e.g., "Title - cover.jpg")
	Filename string
	// MaxWidth bounds the saved image width. Defaults to DefaultCoverWidth.
	MaxWidth int
	// Overwrite forces re-downloading even if the cover exists
	Overwrite bool
	// Client is the HTTP client used for the download
	Client *http.Client
}

// CoverDownloadResult holds the result of a cover download operation.
type CoverDownloadResult struct {
	// Downloaded indicates if a new file was downloaded
	Downloaded bool
	// LocalPath is the full path to the cover
	LocalPath string
	// Filename is just the filename
	Filename string
}

// DownloadCover downloads a cover image, shrinks it to MaxWidth and stores it
// as JPEG. Existing files are kept unless Overwrite is set.
func DownloadCover(ctx context.Context, opts CoverDownloadOptions) (*CoverDownloadResult, error) {
	if opts.URL == "" {
		return nil, nil
	}

	localPath := filepath.Join(opts.OutputDir, opts.Filename)
	result := &CoverDownloadResult{
		LocalPath: localPath,
		Filename:  opts.Filename,
	}

	if FileExists(localPath) && !opts.Overwrite {
		slog.Debug("Cover already exists, skipping download", "path", localPath)
		return result, nil
	}

	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	maxWidth := opts.MaxWidth
	if maxWidth <= 0 {
		maxWidth = DefaultCoverWidth
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, opts.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cover request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download cover: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d downloading cover from %s", resp.StatusCode, opts.URL)
	}

	img, err := imaging.Decode(resp.Body, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode cover: %w", err)
	}
	if img.Bounds().Dx() > maxWidth {
		img = imaging.Resize(img, maxWidth, 0, imaging.Lanczos)
	}

	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cover directory: %w", err)
	}
	if err := imaging.Save(img, localPath, imaging.JPEGQuality(85)); err != nil {
		return nil, fmt.Errorf("failed to write cover file: %w", err)
	}

	slog.Info("Downloaded cover", "path", localPath)
	result.Downloaded = true
	return result, nil
}

// BuildCoverFilename creates a standard cover filename from a title and provider.
// Returns: "Title - provider.jpg"
func BuildCoverFilename(title, provider string) string {
	return SanitizeFilename(title) + " - " + SanitizeFilename(provider) + ".jpg"
}
