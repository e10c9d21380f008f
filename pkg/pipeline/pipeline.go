// Package pipeline wires the scrape, transform and task generation stages
// together from a single configuration.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"jiradataset/pkg/checkpoint"
	"jiradataset/pkg/config"
	"jiradataset/pkg/dataset"
	"jiradataset/pkg/jira"
	"jiradataset/pkg/logger"
	"jiradataset/pkg/metrics"
	"jiradataset/pkg/ratelimit"
	"jiradataset/pkg/retry"
	"jiradataset/pkg/scraper"
	"jiradataset/pkg/storage"
	"jiradataset/pkg/tasks"
	"jiradataset/pkg/transform"
)

// TestModeIssueLimit caps each project in test mode
const TestModeIssueLimit = 100

// Report summarizes a pipeline run
type Report struct {
	Scrape      *scraper.Result
	Transformed map[string]int
	Records     int
	OutputPath  string
	Interrupted bool
	Duration    time.Duration
}

// Pipeline runs the stages against one configuration
type Pipeline struct {
	cfg    *config.Config
	logger logger.Logger
}

// New creates a pipeline
func New(cfg *config.Config, log logger.Logger) *Pipeline {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Pipeline{cfg: cfg, logger: log}
}

// IssueLimit resolves the per-project cap from the run flags. Test mode
// takes precedence over an explicit limit.
func IssueLimit(limit int, testMode bool) int {
	if testMode {
		return TestModeIssueLimit
	}
	if limit < 0 {
		return 0
	}
	return limit
}

// Scrape fetches every configured project into the raw store
func (p *Pipeline) Scrape(ctx context.Context) (*scraper.Result, error) {
	cfg := p.cfg

	pages, err := storage.NewPageStore(cfg.Storage.RawDir)
	if err != nil {
		return nil, err
	}

	checkpoints, closeStore, err := checkpoint.Open(ctx, cfg.Checkpoint, p.logger)
	if err != nil {
		return nil, err
	}
	defer closeStore()

	client := jira.NewClient(cfg.Jira, p.logger)
	client.SetLimiter(ratelimit.PerMinute(cfg.Scrape.RequestsPerMinute))

	executor := retry.NewExecutor(cfg.Retry, p.logger)
	fetcher := jira.NewPageFetcher(client, executor, cfg.Scrape.PageSize, p.logger)

	logger.LogComponentStart(p.logger, "scraper", map[string]interface{}{
		"projects":   cfg.Scrape.Projects,
		"page_size":  fetcher.PageSize(),
		"limit":      cfg.Scrape.MaxIssuesPerProject,
		"resume":     cfg.Scrape.Resume,
		"checkpoint": checkpoints.Backend(),
	})

	s := scraper.New(fetcher, pages, checkpoints, scraper.OptionsFromConfig(cfg.Scrape), p.logger)
	result, err := s.Run(ctx, cfg.Scrape.Projects)
	if result != nil {
		logger.LogStageSummary(p.logger, "Scrape", result.Pages)
	}
	return result, err
}

// Transform cleans the raw pages of every configured project
func (p *Pipeline) Transform(ctx context.Context) (map[string]int, error) {
	pages, err := storage.NewPageStore(p.cfg.Storage.RawDir)
	if err != nil {
		return nil, err
	}
	t, err := transform.New(pages, p.cfg.Storage.ProcessedDir, p.cfg.Storage.Workers, p.logger)
	if err != nil {
		return nil, err
	}
	return t.ProcessAll(ctx, p.cfg.Scrape.Projects)
}

// Tasks derives the training tasks and writes the final dataset
func (p *Pipeline) Tasks(ctx context.Context) (int, error) {
	sinks, err := dataset.Open(ctx, p.cfg.Storage, p.cfg.Dataset, p.logger)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err := dataset.CloseAll(sinks); err != nil {
			p.logger.WithError(err).Warn("Failed to close dataset sinks")
		}
	}()

	g := tasks.NewGenerator(p.cfg.Storage.ProcessedDir, sinks, p.logger)
	return g.GenerateAll(ctx, p.cfg.Scrape.Projects)
}

// Run executes scrape, transform and tasks in order. An interrupted scrape
// skips the remaining stages; the checkpoints keep the progress.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	report := &Report{OutputPath: OutputPath(p.cfg)}
	defer func() { report.Duration = time.Since(start) }()

	if p.cfg.Metrics.Enabled {
		srv, err := metrics.NewServer(p.cfg.Metrics.Addr, p.logger)
		if err != nil {
			return report, err
		}
		srv.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	p.logger.Info("Step 1/3: scraping")
	result, err := p.Scrape(ctx)
	report.Scrape = result
	if err != nil {
		return report, fmt.Errorf("scrape stage: %w", err)
	}
	if result.Interrupted {
		report.Interrupted = true
		p.logger.Warn("Pipeline interrupted, progress saved in checkpoints")
		return report, nil
	}

	p.logger.Info("Step 2/3: transforming")
	report.Transformed, err = p.Transform(ctx)
	if err != nil {
		return p.stageFailed(ctx, report, "transform", err)
	}

	p.logger.Info("Step 3/3: generating derived tasks")
	report.Records, err = p.Tasks(ctx)
	if err != nil {
		return p.stageFailed(ctx, report, "tasks", err)
	}

	p.logger.InfoWithFields("Pipeline completed", map[string]interface{}{
		"records": report.Records,
		"output":  report.OutputPath,
	})
	return report, nil
}

// stageFailed reports cancellation as an interruption and anything else as
// a stage error
func (p *Pipeline) stageFailed(ctx context.Context, report *Report, stage string, err error) (*Report, error) {
	if ctx.Err() != nil {
		report.Interrupted = true
		p.logger.WarnWithFields("Pipeline interrupted", map[string]interface{}{"stage": stage})
		return report, nil
	}
	return report, fmt.Errorf("%s stage: %w", stage, err)
}

// OutputPath returns the JSONL dataset path for cfg
func OutputPath(cfg *config.Config) string {
	return filepath.Join(cfg.Storage.OutputDir, cfg.Storage.OutputFile)
}
