package gaps

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"time"
)

var unsafeSessionChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// FileStore keeps one JSON file per session in a directory. Locks are lock
// files created exclusively next to the gap file and holding the owner pid.
// Lock files older than the lock TTL are treated as left over by a crashed run.
type FileStore struct {
	dir     string
	lockTTL time.Duration
}

func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create gaps directory %q: %w", dir, err)
	}
	return &FileStore{dir: dir, lockTTL: defaultRedisLockTTL}, nil
}

func (f *FileStore) Path(sessionID string) string {
	return filepath.Join(f.dir, "gaps_"+sanitize(sessionID)+".json")
}

func (f *FileStore) lockPath(sessionID string) string {
	return filepath.Join(f.dir, "gaps_"+sanitize(sessionID)+".lock")
}

func (f *FileStore) Load(_ context.Context, sessionID string) (Set, error) {
	data, err := os.ReadFile(f.Path(sessionID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Set{}, ErrNotFound
		}
		return Set{}, fmt.Errorf("read gaps file: %w", err)
	}

	var set Set
	if err := json.Unmarshal(data, &set); err != nil {
		return Set{}, fmt.Errorf("decode gaps file: %w", err)
	}
	return set, nil
}

func (f *FileStore) Save(_ context.Context, sessionID string, set Set) error {
	data, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		return fmt.Errorf("encode gaps: %w", err)
	}

	path := f.Path(sessionID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write gaps file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace gaps file: %w", err)
	}
	return nil
}

func (f *FileStore) Delete(_ context.Context, sessionID string) error {
	if err := os.Remove(f.Path(sessionID)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete gaps file: %w", err)
	}
	return nil
}

func (f *FileStore) Lock(_ context.Context, sessionID string) (Unlock, error) {
	path := f.lockPath(sessionID)
	err := createLockFile(path)
	if errors.Is(err, fs.ErrExist) && f.reclaimStale(path) {
		err = createLockFile(path)
	}
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, ErrSessionLocked
		}
		return nil, fmt.Errorf("create lock file: %w", err)
	}

	return func(context.Context) error {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove lock file: %w", err)
		}
		return nil
	}, nil
}

func (f *FileStore) reclaimStale(path string) bool {
	info, err := os.Stat(path)
	if err != nil || time.Since(info.ModTime()) < f.lockTTL {
		return false
	}
	return os.Remove(path) == nil
}

func createLockFile(path string) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(file, "%d\n", os.Getpid()); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// sanitize keeps the session id readable in file names and appends a short
// hash of the raw id so distinct ids never share a file.
func sanitize(sessionID string) string {
	sum := sha256.Sum256([]byte(sessionID))
	return unsafeSessionChars.ReplaceAllString(sessionID, "_") + "-" + hex.EncodeToString(sum[:6])
}
