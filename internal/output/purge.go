// Package output owns the build output directory: it purges stale artifacts
// before a build and is the only writer of new ones.
package output

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// PurgeError reports a filesystem failure while clearing the output directory.
type PurgeError struct {
	Dir string
	Err error
}

func (e *PurgeError) Error() string {
	return fmt.Sprintf("failed to purge output directory %s: %v", e.Dir, e.Err)
}

func (e *PurgeError) Unwrap() error {
	return e.Err
}

// Purge deletes the contents of dir, keeping dir itself. A missing dir is
// skipped silently. The first failure aborts the purge.
func Purge(dir string) error {
	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		log.Debug().Str("dir", dir).Msg("output directory absent, nothing to purge")
		return nil
	}
	if err != nil {
		return &PurgeError{Dir: dir, Err: err}
	}
	if !info.IsDir() {
		return &PurgeError{Dir: dir, Err: fmt.Errorf("not a directory")}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return &PurgeError{Dir: dir, Err: err}
	}

	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
			return &PurgeError{Dir: dir, Err: err}
		}
	}

	log.Info().Str("dir", dir).Int("entries", len(entries)).Msg("Purged output directory")
	return nil
}
