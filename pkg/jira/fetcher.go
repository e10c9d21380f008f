package jira

import (
	"context"
	"errors"

	errs "jiradataset/pkg/errors"
	"jiradataset/pkg/logger"
	"jiradataset/pkg/retry"
)

// Searcher performs one search request
type Searcher interface {
	Search(ctx context.Context, p SearchParams) (Envelope, error)
}

// PageFetcher fetches one page of a project through the retry executor
type PageFetcher struct {
	searcher Searcher
	executor *retry.Executor
	pageSize int
	logger   logger.Logger
}

// NewPageFetcher creates a page fetcher with a fixed page size
func NewPageFetcher(s Searcher, exec *retry.Executor, pageSize int, log logger.Logger) *PageFetcher {
	if log == nil {
		log = logger.GetLogger()
	}
	return &PageFetcher{
		searcher: s,
		executor: exec,
		pageSize: ClampPageSize(pageSize),
		logger:   log,
	}
}

// PageSize returns the number of issues requested per page
func (f *PageFetcher) PageSize() int {
	return f.pageSize
}

// FetchPage returns the envelope at startAt. A page that cannot be fetched
// is reported with ok=false and a nil error; only cancellation of ctx is
// returned as an error.
func (f *PageFetcher) FetchPage(ctx context.Context, project string, startAt int) (Envelope, bool, error) {
	params := SearchParams{Project: project, StartAt: startAt, MaxResults: f.pageSize}

	env, err := retry.DoWithResult(ctx, f.executor, func(ctx context.Context) (Envelope, error) {
		return f.searcher.Search(ctx, params)
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, false, ctxErr
		}
		fields := map[string]interface{}{
			"project":  project,
			"start_at": startAt,
			"class":    string(errs.ClassOf(err)),
		}
		if errors.Is(err, retry.ErrRetryExhausted) {
			fields["exhausted"] = true
		}
		f.logger.WithError(err).ErrorWithFields("Failed to fetch page", fields)
		return nil, false, nil
	}

	if !env.Valid() {
		f.logger.WarnWithFields("Unexpected response shape", map[string]interface{}{
			"project":  project,
			"start_at": startAt,
		})
		return nil, false, nil
	}

	return env, true, nil
}
