package dataset

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"jiradataset/pkg/logger"
	"jiradataset/pkg/models"
	"jiradataset/pkg/storage"
)

// JSONLSink writes one JSON object per line to a single file. Each Write
// replaces the file atomically.
type JSONLSink struct {
	path   string
	logger logger.Logger
}

// NewJSONLSink creates a sink writing to path
func NewJSONLSink(path string, log logger.Logger) *JSONLSink {
	if log == nil {
		log = logger.GetLogger()
	}
	return &JSONLSink{path: path, logger: log}
}

// Path returns the output file
func (s *JSONLSink) Path() string {
	return s.path
}

// Name implements Sink
func (s *JSONLSink) Name() string {
	return "jsonl"
}

// Write implements Sink
func (s *JSONLSink) Write(ctx context.Context, records []models.Record) error {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	for _, r := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := encoder.Encode(r); err != nil {
			return fmt.Errorf("failed to encode %s: %w", r.IssueKey, err)
		}
	}

	if err := storage.WriteFileAtomic(s.path, &buf); err != nil {
		return err
	}

	s.logger.InfoWithFields("Dataset written", map[string]interface{}{
		"path":    s.path,
		"records": len(records),
	})
	return nil
}

// Close implements Sink
func (s *JSONLSink) Close() error {
	return nil
}
