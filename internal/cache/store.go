// Package cache is the single source of truth for "is this artifact usable".
// Files are recorded only after their SHA-1 and size were verified on disk.
package cache

import (
	"bufio"
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"craft-keeper/internal/errs"
	"craft-keeper/internal/logger"
	"craft-keeper/internal/models"

	"github.com/rs/zerolog"
)

// IndexFileName is the persisted index under the cache root.
const IndexFileName = "cache-index.jsonl"

// record is one line of the index log. A removed record drops the path.
type record struct {
	Path     string    `json:"path"`
	SHA1     string    `json:"sha1,omitempty"`
	Size     int64     `json:"size,omitempty"`
	Verified time.Time `json:"verified"`
	Removed  bool      `json:"removed,omitempty"`
}

/**
 * Cache store
 * @property {string} root - Cache root directory
 * @property {map} entries - Verified entries keyed by slash separated relative path
 * @description
 * - All index mutations go through mu (single writer)
 * - Verification of one path is serialized through a per-path lock, so
 *   check-then-set is atomic per path while different paths hash in parallel
 */
type Store struct {
	root      string
	indexPath string

	mu      sync.Mutex
	entries map[string]models.CacheEntry
	index   *os.File

	pathLocks sync.Map
	now       func() time.Time
	log       zerolog.Logger
}

/**
 * Open the store rooted at root
 * @param {string} root - Cache root, created when missing
 * @returns {*Store} Store with the persisted index replayed
 * @description
 * - An unreadable index is treated as empty, files already on disk are then
 *   re-verified by their next user instead of downloaded again
 */
func Open(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create cache root '%s': %w", root, err)
	}
	s := &Store{
		root:      root,
		indexPath: filepath.Join(root, IndexFileName),
		entries:   make(map[string]models.CacheEntry),
		now:       time.Now,
		log:       logger.With("cache"),
	}
	if err := s.load(); err != nil {
		s.log.Warn().Err(err).Str("index", s.indexPath).Msg("cache index unreadable, starting empty")
		s.entries = make(map[string]models.CacheEntry)
	}
	if err := s.compactLocked(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.indexPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := bytes.TrimSpace(sc.Bytes())
		if len(text) == 0 {
			continue
		}
		var rec record
		if err := json.Unmarshal(text, &rec); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if rec.Path == "" {
			return fmt.Errorf("line %d: record without path", line)
		}
		if rec.Removed {
			delete(s.entries, rec.Path)
			continue
		}
		s.entries[rec.Path] = models.CacheEntry{
			Path:       rec.Path,
			SHA1:       rec.SHA1,
			Size:       rec.Size,
			VerifiedAt: rec.Verified,
		}
	}
	return sc.Err()
}

// Root returns the cache root directory.
func (s *Store) Root() string { return s.root }

// Abs converts a store path to an absolute filesystem path.
func (s *Store) Abs(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(s.root, filepath.FromSlash(p))
}

// key normalizes absolute paths under the root and relative paths to one form.
func (s *Store) key(p string) string {
	if filepath.IsAbs(p) {
		if rel, err := filepath.Rel(s.root, p); err == nil && !strings.HasPrefix(rel, "..") {
			p = rel
		}
	}
	return path.Clean(filepath.ToSlash(p))
}

func (s *Store) pathLock(key string) *sync.Mutex {
	m, _ := s.pathLocks.LoadOrStore(key, &sync.Mutex{})
	return m.(*sync.Mutex)
}

/**
 * Lookup a verified entry
 * @param {string} p - Path relative to the root (or absolute under it)
 * @returns {CacheEntry, bool} The entry and true when recorded
 * @description
 * - An entry whose file vanished or changed size is dropped and reported missing
 */
func (s *Store) Lookup(p string) (models.CacheEntry, bool) {
	key := s.key(p)
	s.mu.Lock()
	entry, ok := s.entries[key]
	s.mu.Unlock()
	if !ok {
		return models.CacheEntry{}, false
	}
	fi, err := os.Stat(s.Abs(key))
	if err != nil || fi.Size() != entry.Size {
		s.log.Debug().Str("path", key).Msg("cached file changed on disk, dropping entry")
		s.remove(key)
		return models.CacheEntry{}, false
	}
	return entry, true
}

// Matches reports whether a recorded entry satisfies the expected checksum and size.
// An empty expected checksum or zero size is not compared.
func Matches(e models.CacheEntry, sha1sum string, size int64) bool {
	if sha1sum != "" && !strings.EqualFold(e.SHA1, sha1sum) {
		return false
	}
	if size > 0 && e.Size != size {
		return false
	}
	return true
}

/**
 * Verify the file at p and register it
 * @param {string} p - Path relative to the root
 * @param {string} sha1sum - Expected hex SHA-1, empty to check size only
 * @param {int64} size - Expected size, 0 when unknown
 * @returns {error} nil on success, errs.ErrChecksumMismatch otherwise
 * @description
 * - Recomputes the checksum from disk
 * - On mismatch any prior entry for p is removed
 */
func (s *Store) VerifyAndRegister(p string, sha1sum string, size int64) error {
	key := s.key(p)
	lock := s.pathLock(key)
	lock.Lock()
	defer lock.Unlock()

	actual, actualSize, err := HashFile(s.Abs(key))
	if err != nil {
		s.remove(key)
		return &errs.Error{Code: errs.CodeChecksumMismatch, Path: key, Expected: sha1sum, Err: err}
	}
	if size > 0 && actualSize != size {
		s.remove(key)
		return &errs.Error{
			Code:     errs.CodeChecksumMismatch,
			Path:     key,
			Expected: fmt.Sprintf("%d bytes", size),
			Actual:   fmt.Sprintf("%d bytes", actualSize),
		}
	}
	if sha1sum != "" && !strings.EqualFold(actual, sha1sum) {
		s.remove(key)
		return &errs.Error{Code: errs.CodeChecksumMismatch, Path: key, Expected: sha1sum, Actual: actual}
	}

	entry := models.CacheEntry{Path: key, SHA1: actual, Size: actualSize, VerifiedAt: s.now()}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry
	return s.appendLocked(record{Path: key, SHA1: actual, Size: actualSize, Verified: entry.VerifiedAt})
}

/**
 * Re-verify a recorded entry against the file on disk
 * @returns {error} errs.ErrNotFound when p is not recorded, checksum mismatch when changed
 */
func (s *Store) Verify(p string) error {
	key := s.key(p)
	s.mu.Lock()
	entry, ok := s.entries[key]
	s.mu.Unlock()
	if !ok {
		return &errs.Error{Code: errs.CodeNotFound, Path: key}
	}
	return s.VerifyAndRegister(key, entry.SHA1, entry.Size)
}

// Forget drops the entry for p, if any.
func (s *Store) Forget(p string) error {
	return s.remove(s.key(p))
}

func (s *Store) remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[key]; !ok {
		return nil
	}
	delete(s.entries, key)
	return s.appendLocked(record{Path: key, Removed: true, Verified: s.now()})
}

// Entries returns all recorded entries sorted by path.
func (s *Store) Entries() []models.CacheEntry {
	s.mu.Lock()
	out := make([]models.CacheEntry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Len returns the number of recorded entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Store) appendLocked(rec record) error {
	if s.index == nil {
		f, err := os.OpenFile(s.indexPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("open cache index: %w", err)
		}
		s.index = f
	}
	line, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	line = append(line, '\n')
	if _, err := s.index.Write(line); err != nil {
		return fmt.Errorf("append cache index: %w", err)
	}
	return nil
}

// Compact rewrites the index with one record per live entry.
func (s *Store) Compact() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.compactLocked()
}

func (s *Store) compactLocked() error {
	if s.index != nil {
		s.index.Close()
		s.index = nil
	}
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	tmp, err := os.CreateTemp(s.root, IndexFileName+".*")
	if err != nil {
		return fmt.Errorf("compact cache index: %w", err)
	}
	w := bufio.NewWriter(tmp)
	enc := json.NewEncoder(w)
	for _, k := range keys {
		e := s.entries[k]
		if err := enc.Encode(record{Path: e.Path, SHA1: e.SHA1, Size: e.Size, Verified: e.VerifiedAt}); err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
			return err
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), s.indexPath); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace cache index: %w", err)
	}
	return nil
}

// Close compacts the index and releases the append handle.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.compactLocked()
	if s.index != nil {
		s.index.Close()
		s.index = nil
	}
	return err
}

// HashFile returns the hex SHA-1 and size of the file at p.
func HashFile(p string) (string, int64, error) {
	f, err := os.Open(p)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()
	h := sha1.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}
