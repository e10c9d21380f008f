package scraper

import (
	"context"
	"fmt"
	"time"

	"jiradataset/pkg/checkpoint"
	"jiradataset/pkg/config"
	"jiradataset/pkg/logger"
	"jiradataset/pkg/metrics"
	"jiradataset/pkg/retry"
)

// Options controls pagination and pacing
type Options struct {
	// Resume starts each project at its checkpointed page
	Resume bool
	// MaxIssuesPerProject caps the issues fetched per project; 0 means all
	MaxIssuesPerProject int
	// PoliteDelay is the pause after each page saved inside the paging loop
	PoliteDelay time.Duration
	// PartitionDelay is the pause between projects
	PartitionDelay time.Duration
}

// OptionsFromConfig maps scrape configuration onto Options
func OptionsFromConfig(cfg config.ScrapeConfig) Options {
	return Options{
		Resume:              cfg.Resume,
		MaxIssuesPerProject: cfg.MaxIssuesPerProject,
		PoliteDelay:         cfg.PoliteDelay,
		PartitionDelay:      cfg.PartitionDelay,
	}
}

// Scraper pages through projects, saving every page and advancing the
// checkpoint after each save.
type Scraper struct {
	fetcher     PageFetcher
	pages       PageSink
	checkpoints checkpoint.Store
	opts        Options
	sleep       retry.Sleeper
	logger      logger.Logger
}

// New creates a Scraper
func New(fetcher PageFetcher, pages PageSink, checkpoints checkpoint.Store, opts Options, log logger.Logger) *Scraper {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Scraper{
		fetcher:     fetcher,
		pages:       pages,
		checkpoints: checkpoints,
		opts:        opts,
		sleep:       retry.Wait,
		logger:      log,
	}
}

// SetSleeper replaces the pause used for polite and partition delays
func (s *Scraper) SetSleeper(sleep retry.Sleeper) {
	s.sleep = sleep
}

// TotalPages returns ceil(min(total, limit)/pageSize). A limit of 0 means
// no cap.
func TotalPages(total, limit, pageSize int) int {
	if limit > 0 && total > limit {
		total = limit
	}
	if total <= 0 || pageSize <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}

// ScrapeProject fetches a single project and returns the number of pages
// saved during this call. A project whose first page cannot be fetched
// yields 0 and no error. Errors are returned only for cancellation and for
// failures to persist a page or checkpoint.
func (s *Scraper) ScrapeProject(ctx context.Context, project string) (int, error) {
	log := s.logger.WithField("project", project)
	pageSize := s.fetcher.PageSize()

	startPage := 0
	if s.opts.Resume {
		startPage = s.checkpoints.Load(ctx, project)
	}
	log.InfoWithFields("Starting project scrape", map[string]interface{}{
		"start_page": startPage,
		"page_size":  pageSize,
		"resume":     s.opts.Resume,
	})

	first, ok, err := s.fetcher.FetchPage(ctx, project, startPage*pageSize)
	if err != nil {
		return 0, err
	}
	if !ok {
		metrics.PageFailuresTotal.WithLabelValues(project).Inc()
		log.ErrorWithFields("Failed to fetch initial page", map[string]interface{}{
			"page": startPage,
		})
		return 0, nil
	}

	reported, _ := first.Total()
	totalPages := TotalPages(reported, s.opts.MaxIssuesPerProject, pageSize)
	if s.opts.MaxIssuesPerProject > 0 && reported > s.opts.MaxIssuesPerProject {
		log.InfoWithFields("Limiting issues", map[string]interface{}{
			"limit":     s.opts.MaxIssuesPerProject,
			"available": reported,
		})
	}
	log.InfoWithFields("Computed page count", map[string]interface{}{
		"total_issues": reported,
		"total_pages":  totalPages,
	})

	if startPage > 0 && startPage >= totalPages {
		// the start page is still saved and checkpointed; it holds no issues
		log.WarnWithFields("Checkpoint is past the last page", map[string]interface{}{
			"start_page":  startPage,
			"total_pages": totalPages,
		})
	}

	if err := s.pages.SavePage(project, startPage, first); err != nil {
		return 0, err
	}
	if err := s.checkpoints.Save(ctx, project, startPage); err != nil {
		return 0, fmt.Errorf("failed to save checkpoint for %s: %w", project, err)
	}
	metrics.PagesSavedTotal.WithLabelValues(project).Inc()
	logger.LogPageSaved(s.logger, project, startPage, totalPages)
	scraped := 1

	for page := startPage + 1; page < totalPages; page++ {
		env, ok, err := s.fetcher.FetchPage(ctx, project, page*pageSize)
		if err != nil {
			return scraped, err
		}
		if !ok {
			metrics.PageFailuresTotal.WithLabelValues(project).Inc()
			log.ErrorWithFields("Failed to fetch page, stopping", map[string]interface{}{
				"page":        page,
				"total_pages": totalPages,
			})
			break
		}

		if err := s.pages.SavePage(project, page, env); err != nil {
			return scraped, err
		}
		if err := s.checkpoints.Save(ctx, project, page); err != nil {
			return scraped, fmt.Errorf("failed to save checkpoint for %s: %w", project, err)
		}
		metrics.PagesSavedTotal.WithLabelValues(project).Inc()
		logger.LogPageSaved(s.logger, project, page, totalPages)
		scraped++

		if err := s.sleep(ctx, s.opts.PoliteDelay); err != nil {
			return scraped, err
		}
	}

	log.InfoWithFields("Completed project scrape", map[string]interface{}{
		"pages": scraped,
	})
	return scraped, nil
}
