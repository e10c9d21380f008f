// Package tasks derives training tasks from processed issues and assembles
// the final dataset.
package tasks

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"jiradataset/pkg/dataset"
	"jiradataset/pkg/logger"
	"jiradataset/pkg/models"
	"jiradataset/pkg/transform"
)

// Generator reads processed issue files and writes dataset records to sinks
type Generator struct {
	processedDir string
	sinks        []dataset.Sink
	logger       logger.Logger
}

// NewGenerator creates a generator reading from processedDir
func NewGenerator(processedDir string, sinks []dataset.Sink, log logger.Logger) *Generator {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Generator{
		processedDir: processedDir,
		sinks:        sinks,
		logger:       log.WithField("component", "tasks"),
	}
}

// ProcessProject derives records for every processed issue of project. A
// missing or unreadable processed file yields no records.
func (g *Generator) ProcessProject(project string) []models.Record {
	log := g.logger.WithField("project", project)
	path := filepath.Join(g.processedDir, transform.ProcessedFileName(project))

	issues, err := transform.LoadProcessed(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.WarnWithFields("Processed file not found", map[string]interface{}{"path": path})
		} else {
			log.WithError(err).Warn("Failed to load processed file")
		}
		return nil
	}

	records := make([]models.Record, 0, len(issues))
	for _, issue := range issues {
		records = append(records, Derive(issue))
	}

	log.InfoWithFields("Derived tasks generated", map[string]interface{}{
		"issues": len(records),
	})
	return records
}

// GenerateAll combines the records of all projects, in project order, and
// writes them to every sink. It returns the number of records written.
func (g *Generator) GenerateAll(ctx context.Context, projects []string) (int, error) {
	all := []models.Record{}
	counts := make(map[string]int, len(projects))

	for _, project := range projects {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		records := g.ProcessProject(project)
		counts[project] = len(records)
		all = append(all, records...)
	}

	if err := dataset.WriteAll(ctx, g.sinks, all); err != nil {
		return 0, err
	}

	logger.LogStageSummary(g.logger, "Tasks", counts)
	return len(all), nil
}
