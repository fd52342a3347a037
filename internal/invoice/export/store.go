package export

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FileStore keeps pre-rendered invoice PDFs on disk, one per invoice id.
type FileStore struct {
	dir string
}

// NewFileStore uses dir, or a temp sub-directory when dir is blank.
func NewFileStore(dir string) *FileStore {
	if strings.TrimSpace(dir) == "" {
		dir = filepath.Join(os.TempDir(), "facturapro-exports")
	}
	return &FileStore{dir: dir}
}

func (s *FileStore) path(id uuid.UUID) string {
	return filepath.Join(s.dir, "invoice-"+id.String()+".pdf")
}

// Save writes data atomically: readers see the previous file or the whole
// new one, never a partial write.
func (s *FileStore) Save(id uuid.UUID, data []byte) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp(s.dir, ".invoice-*.tmp")
	if err != nil {
		return "", err
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	path := s.path(id)
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", err
	}
	return path, nil
}

// Load returns the stored PDF of id, or fs.ErrNotExist.
func (s *FileStore) Load(id uuid.UUID) ([]byte, error) {
	return os.ReadFile(s.path(id))
}

// Exists reports whether a PDF for id is stored.
func (s *FileStore) Exists(id uuid.UUID) bool {
	_, err := os.Stat(s.path(id))
	return err == nil
}

// Sweep deletes stored PDFs last written before cutoff and returns how many
// were removed.
func (s *FileStore) Sweep(cutoff time.Time) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".pdf") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil {
				return removed, fmt.Errorf("export: sweep %s: %w", e.Name(), err)
			}
			removed++
		}
	}
	return removed, nil
}
