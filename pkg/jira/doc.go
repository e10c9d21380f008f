// Package jira talks to the issue tracker's JQL search endpoint.
//
// This package includes:
//   - Client, which performs one GET per call with separate connect and read
//     timeouts and returns classified errors (see pkg/errors)
//   - PageFetcher, which wraps a Client in the retry executor and turns any
//     give-up into a soft "page failed" signal
//   - Envelope and Issue models for the search response
//   - Helpers for building search URLs and validating project keys
//
// Example usage:
//
//	client := jira.NewClient(cfg.Jira, log)
//	fetcher := jira.NewPageFetcher(client, retry.NewExecutor(cfg.Retry, log), 50, log)
//
//	env, ok, err := fetcher.FetchPage(ctx, "SPARK", 0)
//	if err != nil {
//	    return err // cancelled
//	}
//	if !ok {
//	    // stop paging this project
//	}
//	total, _ := env.Total()
package jira
