package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// PageStore keeps one raw search envelope per (project, page) in a flat
// directory. Files are named {project}_page_{page}.json.
type PageStore struct {
	dir   string
	saved map[string]map[int]bool
	mu    sync.RWMutex
}

// NewPageStore creates a page store rooted at dir
func NewPageStore(dir string) (*PageStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create raw directory: %w", err)
	}

	s := &PageStore{
		dir:   dir,
		saved: make(map[string]map[int]bool),
	}
	if err := s.scanExistingFiles(); err != nil {
		return nil, fmt.Errorf("failed to scan existing files: %w", err)
	}
	return s, nil
}

// PageFileName returns the artifact name for a page
func PageFileName(project string, page int) string {
	return fmt.Sprintf("%s_page_%d.json", project, page)
}

// ParsePageFileName extracts project and page from an artifact name
func ParsePageFileName(name string) (string, int, bool) {
	if !strings.HasSuffix(name, ".json") {
		return "", 0, false
	}
	stem := strings.TrimSuffix(name, ".json")
	i := strings.LastIndex(stem, "_page_")
	if i <= 0 {
		return "", 0, false
	}
	page, err := strconv.Atoi(stem[i+len("_page_"):])
	if err != nil || page < 0 {
		return "", 0, false
	}
	return stem[:i], page, true
}

// PagePath returns the full path of a page artifact
func (s *PageStore) PagePath(project string, page int) string {
	return filepath.Join(s.dir, PageFileName(project, page))
}

// SavePage writes payload as pretty-printed JSON. The write is atomic; a
// retry of the same page replaces the earlier artifact.
func (s *PageStore) SavePage(project string, page int, payload interface{}) error {
	if err := WriteJSONAtomic(s.PagePath(project, page), payload); err != nil {
		return fmt.Errorf("failed to save %s page %d: %w", project, page, err)
	}

	s.mu.Lock()
	if s.saved[project] == nil {
		s.saved[project] = make(map[int]bool)
	}
	s.saved[project][page] = true
	s.mu.Unlock()
	return nil
}

// LoadPage decodes a page artifact into target
func (s *PageStore) LoadPage(project string, page int, target interface{}) error {
	data, err := os.ReadFile(s.PagePath(project, page))
	if err != nil {
		return fmt.Errorf("failed to read %s page %d: %w", project, page, err)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("failed to decode %s page %d: %w", project, page, err)
	}
	return nil
}

// ListPages returns the page indexes stored for project in ascending
// numeric order. The directory is rescanned so pages written by another
// process are included.
func (s *PageStore) ListPages(project string) ([]int, error) {
	if err := s.scanExistingFiles(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	pages := make([]int, 0, len(s.saved[project]))
	for page := range s.saved[project] {
		pages = append(pages, page)
	}
	sort.Ints(pages)
	return pages, nil
}

// Projects returns every project with at least one stored page, sorted
func (s *PageStore) Projects() ([]string, error) {
	if err := s.scanExistingFiles(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	projects := make([]string, 0, len(s.saved))
	for project, pages := range s.saved {
		if len(pages) > 0 {
			projects = append(projects, project)
		}
	}
	sort.Strings(projects)
	return projects, nil
}

// Count returns the number of pages stored for project
func (s *PageStore) Count(project string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.saved[project])
}

// scanExistingFiles rebuilds the index from the artifacts on disk, so
// files removed since the last scan drop out
func (s *PageStore) scanExistingFiles() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("failed to read directory: %w", err)
	}

	saved := make(map[string]map[int]bool)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		project, page, ok := ParsePageFileName(entry.Name())
		if !ok {
			continue
		}
		if saved[project] == nil {
			saved[project] = make(map[int]bool)
		}
		saved[project][page] = true
	}
	s.saved = saved
	return nil
}
