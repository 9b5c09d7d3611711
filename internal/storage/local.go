package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var ErrNotExist = errors.New("stored file does not exist")

// LocalStore keeps appointment documents on disk under
// <root>/appointments/<appointmentID>/<category>/<storedName>.
type LocalStore struct {
	root string
}

func NewLocalStore(root string) *LocalStore {
	return &LocalStore{root: root}
}

func (l *LocalStore) Root() string {
	return l.root
}

// NewStoredFilename returns a random name that keeps the lowercased
// extension of the client-supplied filename.
func NewStoredFilename(original string) string {
	return uuid.NewString() + strings.ToLower(filepath.Ext(original))
}

// Save writes r to the appointment's category directory and returns the
// resulting path and the number of bytes written. A partially written file
// is removed.
func (l *LocalStore) Save(appointmentID, category, storedName string, r io.Reader) (string, int64, error) {
	if storedName == "" || storedName != filepath.Base(storedName) {
		return "", 0, fmt.Errorf("invalid stored filename %q", storedName)
	}

	dir := filepath.Join(l.root, "appointments", appointmentID, category)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, fmt.Errorf("creating upload dir: %w", err)
	}

	path := filepath.Join(dir, storedName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return "", 0, fmt.Errorf("creating %s: %w", path, err)
	}

	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return "", 0, fmt.Errorf("writing %s: %w", path, err)
	}

	return path, n, nil
}

// Open returns the file at path and its size.
func (l *LocalStore) Open(path string) (io.ReadCloser, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, ErrNotExist
		}
		return nil, 0, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	if info.IsDir() {
		f.Close()
		return nil, 0, ErrNotExist
	}
	return f, info.Size(), nil
}

// Remove deletes path. A file that is already gone is not an error.
func (l *LocalStore) Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
