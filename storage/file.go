package storage

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// keyPrefix keeps escaped keys such as ".." from being treated as paths.
const keyPrefix = "k_"

// FileStore is a disk-backed [Store]. Each key is one file inside the store
// directory; writes are atomic via temp-file-then-rename. The total size of
// stored values is bounded by a quota.
type FileStore struct {
	dir   string
	quota int64

	mu    sync.Mutex
	sizes map[string]int64 // key -> encoded size
	used  int64
}

// OpenFileStore opens (creating if needed) a store rooted at dir. A quota of
// zero or less selects [DefaultQuota]. Existing entries count against the
// quota.
func OpenFileStore(dir string, quota int64) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("storage: directory is required")
	}
	if quota <= 0 {
		quota = DefaultQuota
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create directory %s: %w", dir, err)
	}

	s := &FileStore{
		dir:   dir,
		quota: quota,
		sizes: make(map[string]int64),
	}
	if err := s.scanDir(); err != nil {
		return nil, fmt.Errorf("storage: scan directory: %w", err)
	}
	return s, nil
}

// Dir returns the directory backing the store.
func (s *FileStore) Dir() string {
	return s.dir
}

// Used returns the number of bytes currently stored.
func (s *FileStore) Used() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.used
}

// Put stores value under key.
func (s *FileStore) Put(key string, value any) error {
	if err := checkKey(key); err != nil {
		return err
	}
	encoded, err := Encode(value)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	size := int64(len(encoded))
	if s.used-s.sizes[key]+size > s.quota {
		return fmt.Errorf("%w: %q needs %d bytes, %d of %d used", ErrQuotaExceeded, key, size, s.used, s.quota)
	}

	if err := atomicWrite(s.path(key), []byte(encoded), s.dir); err != nil {
		return fmt.Errorf("storage: write %q: %w", key, err)
	}
	s.used += size - s.sizes[key]
	s.sizes[key] = size
	return nil
}

// Get returns the decoded value for key, or nil if it is missing.
func (s *FileStore) Get(key string) (any, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: read %q: %w", key, err)
	}
	return Decode(string(data)), nil
}

// Has reports whether key is present.
func (s *FileStore) Has(key string) (bool, error) {
	if err := checkKey(key); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sizes[key]
	return ok, nil
}

// Delete removes key.
func (s *FileStore) Delete(key string) error {
	if err := checkKey(key); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("storage: delete %q: %w", key, err)
	}
	s.used -= s.sizes[key]
	delete(s.sizes, key)
	return nil
}

// Keys returns all stored keys in lexical order.
func (s *FileStore) Keys() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.sizes))
	for k := range s.sizes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, keyPrefix+url.PathEscape(key))
}

// scanDir rebuilds the size index from files already on disk.
func (s *FileStore) scanDir() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, keyPrefix) {
			continue
		}
		key, err := url.PathUnescape(strings.TrimPrefix(name, keyPrefix))
		if err != nil {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		s.sizes[key] = info.Size()
		s.used += info.Size()
	}
	return nil
}

// atomicWrite writes data to a temp file in tmpDir and renames it into place.
func atomicWrite(path string, data []byte, tmpDir string) error {
	tmp, err := os.CreateTemp(tmpDir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}

	success = true
	return nil
}
