package sink

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/nao1215/rgwscan/internal/model"
)

// fileSuffix is appended to the category name to form the output file name.
const fileSuffix = "_outputs.json"

// indent matches the four-space layout existing consumers of the files expect.
const indent = "    "

// CategoryFile is the on-disk layout of one category file.
type CategoryFile struct {
	// CephVersion is the version of the first record written to the file.
	CephVersion string `json:"ceph_version"`

	// Outputs holds every persisted command, in append order.
	Outputs []Output `json:"outputs"`
}

// Output is one entry of CategoryFile.Outputs.
type Output struct {
	Command string          `json:"command"`
	Output  json.RawMessage `json:"output"`
}

// Store accumulates records per category and writes them on Flush.
// It is safe for concurrent use.
type Store struct {
	dir       string
	overwrite bool
	logger    *slog.Logger

	mu      sync.Mutex
	pending map[string]*CategoryFile
	counts  map[string]int
}

// Option configures a Store.
type Option func(*Store)

// WithOverwrite replaces existing category files instead of merging into them.
func WithOverwrite(overwrite bool) Option {
	return func(s *Store) {
		s.overwrite = overwrite
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// NewStore creates a Store that writes category files into dir.
// The directory is created on the first Flush if it does not exist.
func NewStore(dir string, opts ...Option) *Store {
	s := &Store{
		dir:     dir,
		pending: make(map[string]*CategoryFile),
		counts:  make(map[string]int),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}

	return s
}

// Dir returns the output directory.
func (s *Store) Dir() string {
	return s.dir
}

// FileName returns the file name used for category.
func FileName(category string) string {
	return category + fileSuffix
}

// Append queues record under its category.
// Records whose command has no subcommand word return ErrNoCategory.
func (s *Store) Append(record model.OutputRecord) error {
	category, ok := record.Category()
	if !ok {
		return fmt.Errorf("%w: %q", ErrNoCategory, record.Command)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, ok := s.pending[category]
	if !ok {
		file = &CategoryFile{Outputs: make([]Output, 0)}
		s.pending[category] = file
	}
	if file.CephVersion == "" {
		file.CephVersion = record.CephVersion
	}
	file.Outputs = append(file.Outputs, Output{
		Command: record.Command,
		Output:  record.Output,
	})
	s.counts[category]++

	return nil
}

// Counts returns the number of records appended per category since the
// store was created.
func (s *Store) Counts() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]int, len(s.counts))
	for k, v := range s.counts {
		out[k] = v
	}
	return out
}

// Flush writes every pending category and returns the paths written, in
// category order. A category that fails to write stays pending; failures
// are joined into the returned error and do not stop the other categories.
func (s *Store) Flush() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.pending) == 0 {
		return nil, nil
	}

	if err := os.MkdirAll(s.dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	categories := make([]string, 0, len(s.pending))
	for name := range s.pending {
		categories = append(categories, name)
	}
	sort.Strings(categories)

	written := make([]string, 0, len(categories))
	var errs []error
	for _, category := range categories {
		path, err := s.flushCategory(category, s.pending[category])
		if err != nil {
			s.logger.Error("failed to write category file", "category", category, "error", err)
			errs = append(errs, fmt.Errorf("category %s: %w", category, err))
			continue
		}
		delete(s.pending, category)
		written = append(written, path)
		s.logger.Debug("wrote category file", "category", category, "path", path)
	}

	return written, errors.Join(errs...)
}

// flushCategory merges pending with the file on disk and replaces it.
func (s *Store) flushCategory(category string, pending *CategoryFile) (string, error) {
	path := filepath.Join(s.dir, FileName(category))

	merged := &CategoryFile{
		CephVersion: pending.CephVersion,
		Outputs:     make([]Output, 0, len(pending.Outputs)),
	}

	if !s.overwrite {
		existing, err := ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return "", err
		default:
			if existing.CephVersion != "" {
				merged.CephVersion = existing.CephVersion
			}
			merged.Outputs = append(merged.Outputs, existing.Outputs...)
		}
	}
	merged.Outputs = append(merged.Outputs, pending.Outputs...)

	data, err := json.MarshalIndent(merged, "", indent)
	if err != nil {
		return "", fmt.Errorf("failed to encode %s: %w", path, err)
	}
	data = append(data, '\n')

	if err := writeFileAtomic(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// ReadFile loads a category file.
func ReadFile(path string) (*CategoryFile, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	var file CategoryFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorruptFile, path, err)
	}
	if file.Outputs == nil {
		file.Outputs = make([]Output, 0)
	}
	return &file, nil
}

// writeFileAtomic writes data to a temporary file next to path and renames it into place.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil { //nolint:gosec // output files are meant to be shared
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to set permissions on %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
