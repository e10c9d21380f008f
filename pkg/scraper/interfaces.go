package scraper

import (
	"context"

	"jiradataset/pkg/jira"
)

// PageFetcher fetches one page of a project. ok=false means the page could
// not be fetched; err is reserved for cancellation.
type PageFetcher interface {
	FetchPage(ctx context.Context, project string, startAt int) (env jira.Envelope, ok bool, err error)
	PageSize() int
}

// PageSink persists raw page payloads
type PageSink interface {
	SavePage(project string, page int, payload interface{}) error
}
