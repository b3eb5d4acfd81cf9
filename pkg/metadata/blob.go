// ABOUTME: Blob storage for metadata updates
// ABOUTME: Persists one gob-encoded file per update under textual and visual areas
package metadata

import (
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
)

// Area partitions the blob store
type Area string

const (
	AreaTextual Area = "textuals"
	AreaVisual  Area = "visuals"
)

// ErrNoBlob is returned when a reference does not resolve to a stored blob
var ErrNoBlob = errors.New("no such metadata blob")

// BlobStore saves metadata objects and hands back opaque references
type BlobStore interface {
	// Serialize stores v and returns a reference to it. keyHint is usually
	// the AU sequence number the update arrived at.
	Serialize(area Area, keyHint int64, v any) (string, error)

	// Deserialize loads the object behind ref into v
	Deserialize(ref string, v any) error
}

// FileStore is a BlobStore backed by one file per blob
type FileStore struct {
	dir string
	seq atomic.Uint64
}

// NewFileStore creates the textual and visual areas under dir
func NewFileStore(dir string) (*FileStore, error) {
	for _, area := range []Area{AreaTextual, AreaVisual} {
		if err := os.MkdirAll(filepath.Join(dir, string(area)), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create %s directory: %w", area, err)
		}
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the root directory of the store
func (s *FileStore) Dir() string {
	return s.dir
}

// Serialize writes v to <dir>/<area>/<keyHint>-<n>. The sequence suffix keeps
// two updates at the same AU apart.
func (s *FileStore) Serialize(area Area, keyHint int64, v any) (string, error) {
	name := strconv.FormatInt(keyHint, 10) + "-" + strconv.FormatUint(s.seq.Add(1), 10)
	path := filepath.Join(s.dir, string(area), name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create blob: %w", err)
	}
	if err := gob.NewEncoder(f).Encode(v); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to encode blob: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to close blob: %w", err)
	}
	return path, nil
}

// Deserialize decodes the blob at ref into v
func (s *FileStore) Deserialize(ref string, v any) error {
	if ref == "" {
		return ErrNoBlob
	}
	f, err := os.Open(ref)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNoBlob, ref)
		}
		return fmt.Errorf("failed to open blob: %w", err)
	}
	defer f.Close()

	if err := gob.NewDecoder(f).Decode(v); err != nil {
		return fmt.Errorf("failed to decode blob %s: %w", ref, err)
	}
	return nil
}

// Remove deletes the whole store directory
func (s *FileStore) Remove() error {
	return os.RemoveAll(s.dir)
}

// LoadTextual is a typed wrapper around Deserialize
func LoadTextual(bs BlobStore, ref string) (*Textual, error) {
	var t Textual
	if err := bs.Deserialize(ref, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// LoadVisual is a typed wrapper around Deserialize
func LoadVisual(bs BlobStore, ref string) (*Visual, error) {
	var v Visual
	if err := bs.Deserialize(ref, &v); err != nil {
		return nil, err
	}
	return &v, nil
}
