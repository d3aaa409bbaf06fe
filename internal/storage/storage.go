package storage

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// Default expiry duration for presigned URLs
const DefaultPresignedURLExpiry = 15 * time.Minute

// MediaSource lists the media filenames available to the resolver. Only names
// are consumed, never file contents.
type MediaSource interface {
	// List returns base filenames (with extensions) in backend order.
	List(ctx context.Context) ([]string, error)

	// Describe names the source for logs and summaries.
	Describe() string
}

// URLSigner is implemented by sources that can hand out temporary download
// links for a media file.
type URLSigner interface {
	GeneratePresignedDownloadURL(ctx context.Context, filename string, expires time.Duration) (string, error)
}

// localSource implements MediaSource over a directory on disk.
type localSource struct {
	dir     string
	pattern string
}

// NewLocalSource lists regular files in dir whose names match the doublestar
// pattern. An empty pattern matches everything.
func NewLocalSource(dir, pattern string) (MediaSource, error) {
	if err := validatePattern(pattern); err != nil {
		return nil, err
	}
	return &localSource{dir: dir, pattern: pattern}, nil
}

func (s *localSource) Describe() string {
	return "dir:" + s.dir
}

// List reads the directory. Entries come back in os.ReadDir order, which is
// sorted by name.
func (s *localSource) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list media directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if matchPattern(s.pattern, e.Name()) {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

func validatePattern(pattern string) error {
	if pattern == "" {
		return nil
	}
	if !doublestar.ValidatePattern(pattern) {
		return fmt.Errorf("invalid media pattern %q", pattern)
	}
	return nil
}

func matchPattern(pattern, name string) bool {
	if pattern == "" {
		return true
	}
	ok, err := doublestar.Match(pattern, name)
	return err == nil && ok
}

// StaticSource serves a fixed listing. Useful for replaying a captured
// directory listing.
type StaticSource struct {
	Names []string
}

func (s StaticSource) List(ctx context.Context) ([]string, error) {
	return append([]string(nil), s.Names...), nil
}

func (s StaticSource) Describe() string {
	return fmt.Sprintf("static:%d files", len(s.Names))
}
