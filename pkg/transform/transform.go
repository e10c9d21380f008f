// Package transform cleans raw search pages into per-project issue files.
package transform

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"jiradataset/internal/workerpool"
	"jiradataset/pkg/jira"
	"jiradataset/pkg/logger"
	"jiradataset/pkg/models"
	"jiradataset/pkg/storage"
)

// PageSource lists and decodes raw page artifacts
type PageSource interface {
	ListPages(project string) ([]int, error)
	LoadPage(project string, page int, target interface{}) error
}

// Transformer turns raw search pages into cleaned per-project issue files
type Transformer struct {
	pages        PageSource
	processedDir string
	workers      int
	logger       logger.Logger
}

// New creates a transformer writing into processedDir
func New(pages PageSource, processedDir string, workers int, log logger.Logger) (*Transformer, error) {
	if err := os.MkdirAll(processedDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create processed directory: %w", err)
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &Transformer{
		pages:        pages,
		processedDir: processedDir,
		workers:      workers,
		logger:       log.WithField("component", "transform"),
	}, nil
}

// ProcessedFileName returns the processed artifact name for a project
func ProcessedFileName(project string) string {
	return fmt.Sprintf("%s_processed.json", project)
}

// ProcessedPath returns the processed artifact path for a project
func (t *Transformer) ProcessedPath(project string) string {
	return filepath.Join(t.processedDir, ProcessedFileName(project))
}

// TransformPage cleans every issue of one envelope. Issues that cannot be
// decoded or carry no key are skipped.
func (t *Transformer) TransformPage(env jira.Envelope) []models.Issue {
	raw, ok := env["issues"]
	if !ok {
		return []models.Issue{}
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		t.logger.WithError(err).Warn("Page issue list is not an array")
		return []models.Issue{}
	}

	cleaned := make([]models.Issue, 0, len(items))
	for i, item := range items {
		var issue jira.Issue
		if err := json.Unmarshal(item, &issue); err != nil {
			t.logger.WithError(err).WarnWithFields("Failed to decode issue, skipping", map[string]interface{}{
				"index": i,
			})
			continue
		}
		out, ok := FromIssue(issue)
		if !ok {
			t.logger.Warn("Issue missing key, skipping")
			continue
		}
		cleaned = append(cleaned, out)
	}

	t.logger.DebugWithFields("Transformed page", map[string]interface{}{
		"cleaned": len(cleaned),
		"total":   len(items),
	})
	return cleaned
}

// ProcessProject transforms every raw page of project in numeric page order
// and writes the processed file. A project without raw pages yields 0 and
// no file.
func (t *Transformer) ProcessProject(ctx context.Context, project string) (int, error) {
	log := t.logger.WithField("project", project)

	pages, err := t.pages.ListPages(project)
	if err != nil {
		return 0, fmt.Errorf("failed to list pages for %s: %w", project, err)
	}
	if len(pages) == 0 {
		log.Warn("No raw pages found")
		return 0, nil
	}

	all := []models.Issue{}
	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		var env jira.Envelope
		if err := t.pages.LoadPage(project, page, &env); err != nil {
			log.WithError(err).WarnWithFields("Failed to load raw page, skipping", map[string]interface{}{
				"page": page,
			})
			continue
		}
		all = append(all, t.TransformPage(env)...)
	}

	if err := storage.WriteJSONAtomic(t.ProcessedPath(project), all); err != nil {
		return 0, err
	}

	log.InfoWithFields("Project transformed", map[string]interface{}{
		"pages":  len(pages),
		"issues": len(all),
	})
	return len(all), nil
}

// ProcessAll transforms projects concurrently. A failing project counts 0
// and does not affect the others; only cancellation is returned as an error.
func (t *Transformer) ProcessAll(ctx context.Context, projects []string) (map[string]int, error) {
	results := workerpool.Run(ctx, t.workers, projects, workerpool.ProcessorFunc(t.ProcessProject), t.logger)

	counts := make(map[string]int, len(projects))
	for _, r := range results {
		counts[r.Job.Project] = r.Count
		if r.Error != nil {
			counts[r.Job.Project] = 0
		}
	}

	if err := ctx.Err(); err != nil {
		return counts, err
	}
	logger.LogStageSummary(t.logger, "Transform", counts)
	return counts, nil
}

// LoadProcessed reads a processed issue file
func LoadProcessed(path string) ([]models.Issue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read processed file: %w", err)
	}
	var issues []models.Issue
	if err := json.Unmarshal(data, &issues); err != nil {
		return nil, fmt.Errorf("failed to decode processed file %s: %w", path, err)
	}
	return issues, nil
}
