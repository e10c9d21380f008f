package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"jiradataset/pkg/logger"
	"jiradataset/pkg/metrics"
)

// BackendFile is the JSON document backend
const BackendFile = "file"

// FileStore keeps every project's entry in one pretty-printed JSON document.
// Each Save rewrites the whole document; saves are serialized by a mutex.
type FileStore struct {
	path   string
	mu     sync.Mutex
	now    func() time.Time
	logger logger.Logger
}

// NewFileStore creates a file-backed store at path
func NewFileStore(path string, log logger.Logger) *FileStore {
	if log == nil {
		log = logger.GetLogger()
	}
	return &FileStore{
		path:   path,
		now:    time.Now,
		logger: log,
	}
}

// Path returns the checkpoint document location
func (s *FileStore) Path() string {
	return s.path
}

// Backend implements Store
func (s *FileStore) Backend() string {
	return BackendFile
}

// Load implements Store
func (s *FileStore) Load(ctx context.Context, project string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		s.logger.WithError(err).WarnWithFields("Checkpoint unreadable, starting from page 0", map[string]interface{}{
			"project": project,
			"path":    s.path,
		})
		return 0
	}

	entry, ok := doc[project]
	if !ok {
		return 0
	}
	if entry.LastFetchedPage < 0 {
		s.logger.WarnWithFields("Negative checkpoint page ignored", map[string]interface{}{
			"project": project,
			"page":    entry.LastFetchedPage,
		})
		return 0
	}

	s.logger.InfoWithFields("Checkpoint loaded", map[string]interface{}{
		"project":    project,
		"page":       entry.LastFetchedPage,
		"updated_at": entry.UpdatedAt(),
	})
	return entry.LastFetchedPage
}

// Save implements Store
func (s *FileStore) Save(ctx context.Context, project string, page int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		if berr := s.copyTo(s.path + ".corrupt"); berr != nil {
			s.logger.WithError(berr).Warn("Failed to keep unreadable checkpoint document")
		}
		s.logger.WithError(err).WarnWithFields("Replacing unreadable checkpoint document", map[string]interface{}{
			"kept_as": s.path + ".corrupt",
		})
		doc = make(map[string]Entry)
	}
	doc[project] = newEntry(page, s.now())

	if err := s.write(doc); err != nil {
		return err
	}

	metrics.CheckpointSavesTotal.WithLabelValues(BackendFile).Inc()
	s.logger.DebugWithFields("Checkpoint saved", map[string]interface{}{
		"project": project,
		"page":    page,
	})
	return nil
}

// All implements Store
func (s *FileStore) All(ctx context.Context) (map[string]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.read()
}

// Reset implements Store
func (s *FileStore) Reset(ctx context.Context, project string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if project == "" {
		if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete checkpoint: %w", err)
		}
		s.logger.Info("Checkpoints deleted")
		return nil
	}

	doc, err := s.read()
	if err != nil {
		return err
	}
	if _, ok := doc[project]; !ok {
		return nil
	}
	delete(doc, project)
	if err := s.write(doc); err != nil {
		return err
	}

	s.logger.InfoWithFields("Checkpoint deleted", map[string]interface{}{"project": project})
	return nil
}

// Backup copies the current document to <path>.backup
func (s *FileStore) Backup() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.copyTo(s.path + ".backup"); err != nil {
		return err
	}
	s.logger.Debug("Checkpoint backed up")
	return nil
}

// copyTo copies the document file to dst; a missing document is a no-op.
// Callers hold s.mu.
func (s *FileStore) copyTo(dst string) error {
	src, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to open checkpoint for backup: %w", err)
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create backup file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		return fmt.Errorf("failed to copy checkpoint to backup: %w", err)
	}
	return nil
}

// read returns the document, or an empty one when the file does not exist
func (s *FileStore) read() (map[string]Entry, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return make(map[string]Entry), nil
		}
		return nil, fmt.Errorf("failed to read checkpoint file: %w", err)
	}

	doc := make(map[string]Entry)
	if len(data) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %w", err)
	}
	return doc, nil
}

// write replaces the document atomically
func (s *FileStore) write(doc map[string]Entry) error {
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create checkpoint directory: %w", err)
		}
	}

	tempPath := s.path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary checkpoint file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(doc); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync checkpoint file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close checkpoint file: %w", err)
	}

	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace checkpoint file: %w", err)
	}
	return nil
}
