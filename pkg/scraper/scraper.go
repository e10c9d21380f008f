package scraper

import (
	"context"
	"fmt"
	"runtime/debug"
)

// Result holds per-project page counts in the order projects finished
type Result struct {
	Pages       map[string]int
	Order       []string
	Interrupted bool
}

func newResult() *Result {
	return &Result{Pages: make(map[string]int)}
}

func (r *Result) record(project string, pages int) {
	if _, seen := r.Pages[project]; !seen {
		r.Order = append(r.Order, project)
	}
	r.Pages[project] = pages
}

// Total returns the number of pages saved across projects
func (r *Result) Total() int {
	total := 0
	for _, n := range r.Pages {
		total += n
	}
	return total
}

// Run scrapes projects in order. A project that fails or panics is recorded
// with 0 pages and the run moves on. Cancellation of ctx stops the run and
// returns what was gathered so far with Interrupted set; the project in
// progress is not recorded. A storage or checkpoint write failure aborts the
// run and is returned together with the partial result.
func (s *Scraper) Run(ctx context.Context, projects []string) (*Result, error) {
	result := newResult()

	for i, project := range projects {
		if ctx.Err() != nil {
			result.Interrupted = true
			break
		}

		pages, err := s.scrapeIsolated(ctx, project)
		if err != nil {
			if ctx.Err() != nil {
				s.logger.WarnWithFields("Scraping interrupted", map[string]interface{}{
					"project":   project,
					"completed": len(result.Order),
				})
				result.Interrupted = true
				break
			}
			s.logger.WithError(err).ErrorWithFields("Aborting scrape run", map[string]interface{}{
				"project": project,
			})
			return result, fmt.Errorf("scraping %s: %w", project, err)
		}
		result.record(project, pages)

		if i < len(projects)-1 {
			if err := s.sleep(ctx, s.opts.PartitionDelay); err != nil {
				result.Interrupted = true
				break
			}
		}
	}

	return result, nil
}

// scrapeIsolated converts a panic inside one project into a zero count
func (s *Scraper) scrapeIsolated(ctx context.Context, project string) (pages int, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.ErrorWithFields("Unexpected failure scraping project", map[string]interface{}{
				"project": project,
				"panic":   fmt.Sprint(r),
				"stack":   string(debug.Stack()),
			})
			pages, err = 0, nil
		}
	}()
	return s.ScrapeProject(ctx, project)
}
