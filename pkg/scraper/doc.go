// Package scraper drives the resumable, paginated fetch of issue tracker
// projects.
//
// Each project goes through the same sequence:
//
//	Start             resolve the start page (checkpoint when resuming, else 0)
//	FetchingFirstPage fetch the start page; failure aborts the project with 0
//	ComputeTotal      ceil(min(total, limit) / pageSize) pages; save page, checkpoint
//	PagingLoop        fetch, save, checkpoint, polite delay; stop on first failure
//	Done              report pages saved during this run
//
// The checkpoint is only written after the page it names has been saved, so
// a crash between the two re-fetches at most one page on resume and never
// skips one. Resuming starts at the checkpointed page itself, which is
// fetched again to learn the current total.
//
// Run iterates projects sequentially with a fixed delay between them. One
// project failing never prevents the next from running.
//
// Usage:
//
//	s := scraper.New(fetcher, pages, checkpoints, scraper.OptionsFromConfig(cfg.Scrape), log)
//	result, err := s.Run(ctx, cfg.Scrape.Projects)
package scraper
