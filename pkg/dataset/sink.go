// Package dataset writes final dataset records to one or more sinks.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"jiradataset/pkg/config"
	"jiradataset/pkg/logger"
	"jiradataset/pkg/models"
)

// Sink receives the complete set of dataset records
type Sink interface {
	Write(ctx context.Context, records []models.Record) error
	Name() string
	Close() error
}

// Open builds the configured sinks. The JSONL file sink is always present;
// the PostgreSQL sink is added when a DSN is configured.
func Open(ctx context.Context, storage config.StorageConfig, ds config.DatasetConfig, log logger.Logger) ([]Sink, error) {
	sinks := []Sink{NewJSONLSink(filepath.Join(storage.OutputDir, storage.OutputFile), log)}

	if ds.PostgresDSN != "" {
		pg, err := NewPostgresSink(ctx, ds.PostgresDSN, ds.PostgresTable, log)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, pg)
	}
	return sinks, nil
}

// WriteAll writes records to every sink. All sinks are attempted; their
// errors are joined.
func WriteAll(ctx context.Context, sinks []Sink, records []models.Record) error {
	var errs []error
	for _, s := range sinks {
		if err := s.Write(ctx, records); err != nil {
			errs = append(errs, fmt.Errorf("%s sink: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// CloseAll closes every sink and joins their errors
func CloseAll(sinks []Sink) error {
	var errs []error
	for _, s := range sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s sink: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}
