package output

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/google/renameio/v2"
	"github.com/rs/zerolog/log"
)

var (
	// ErrInvalidPath is returned for output paths that are absolute or escape the sink.
	ErrInvalidPath = errors.New("invalid output path")

	// ErrConflict is returned when two different contents target the same path.
	ErrConflict = errors.New("conflicting output")
)

// Sink writes build artifacts under a root directory. It is safe for
// concurrent use and remembers every path written during its lifetime.
type Sink struct {
	root string

	mu      sync.Mutex
	written map[string][sha256.Size]byte
}

// NewSink creates a sink rooted at dir. The directory is created on first write.
func NewSink(dir string) *Sink {
	return &Sink{
		root:    dir,
		written: make(map[string][sha256.Size]byte),
	}
}

// Root returns the sink directory.
func (s *Sink) Root() string {
	return s.root
}

// Write atomically stores data at rel, a slash-separated path relative to the
// sink root. Writing identical content to the same path twice is a no-op.
func (s *Sink) Write(rel string, data []byte) (string, error) {
	clean, err := cleanRel(rel)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(data)

	s.mu.Lock()
	prev, exists := s.written[clean]
	if exists {
		s.mu.Unlock()
		if !bytes.Equal(prev[:], sum[:]) {
			return "", fmt.Errorf("%w: %s", ErrConflict, clean)
		}
		return filepath.Join(s.root, filepath.FromSlash(clean)), nil
	}
	s.written[clean] = sum
	s.mu.Unlock()

	target := filepath.Join(s.root, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	// temp file, fsync and rename in one step
	if err := renameio.WriteFile(target, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", clean, err)
	}

	log.Debug().Str("path", clean).Int("bytes", len(data)).Msg("Wrote output file")
	return target, nil
}

// Has reports whether rel has been written.
func (s *Sink) Has(rel string) bool {
	clean, err := cleanRel(rel)
	if err != nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.written[clean]
	return ok
}

// Files lists every written path in lexical order.
func (s *Sink) Files() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	files := make([]string, 0, len(s.written))
	for name := range s.written {
		files = append(files, name)
	}
	slices.Sort(files)
	return files
}

func cleanRel(rel string) (string, error) {
	if rel == "" || strings.Contains(rel, "\\") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, rel)
	}
	clean := path.Clean(strings.TrimPrefix(rel, "./"))
	if path.IsAbs(clean) || clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, rel)
	}
	return clean, nil
}
