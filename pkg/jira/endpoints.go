package jira

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	// DefaultBaseURL is the REST root of the Apache Software Foundation tracker
	DefaultBaseURL = "https://issues.apache.org/jira/rest/api/2"

	// SearchEndpoint is the JQL search path under the REST root
	SearchEndpoint = "/search"

	// DefaultUserAgent identifies this client to the tracker
	DefaultUserAgent = "Apache-Jira-Scraper/1.0"

	// DefaultPageSize is the number of issues requested per page
	DefaultPageSize = 50

	// MaxPageSize is the largest maxResults the search API honors
	MaxPageSize = 100

	// SearchExpand asks for rendered HTML fields plus field metadata
	SearchExpand = "renderedFields,names,schema"

	// SearchFields is the field selection for every search request
	SearchFields = "key,summary,description,status,priority,assignee,reporter,created,updated,labels,comment"
)

// SearchParams identifies one page of a project search
type SearchParams struct {
	Project    string
	StartAt    int
	MaxResults int
}

// ClampPageSize keeps a page size within 1..MaxPageSize
func ClampPageSize(size int) int {
	if size <= 0 {
		return DefaultPageSize
	}
	if size > MaxPageSize {
		return MaxPageSize
	}
	return size
}

// JQL returns the query string for a project partition
func JQL(project string) string {
	return "project=" + project
}

// SearchURL constructs the URL for one page of a project search
func SearchURL(baseURL string, p SearchParams) string {
	params := url.Values{}
	params.Set("jql", JQL(p.Project))
	params.Set("startAt", strconv.Itoa(p.StartAt))
	params.Set("maxResults", strconv.Itoa(ClampPageSize(p.MaxResults)))
	params.Set("expand", SearchExpand)
	params.Set("fields", SearchFields)

	return fmt.Sprintf("%s%s?%s", strings.TrimRight(baseURL, "/"), SearchEndpoint, params.Encode())
}

// IssueURL returns the browse link for an issue key
func IssueURL(baseURL, key string) string {
	if key == "" {
		return ""
	}
	root := strings.TrimRight(baseURL, "/")
	if i := strings.Index(root, "/rest/"); i >= 0 {
		root = root[:i]
	}
	return fmt.Sprintf("%s/browse/%s", root, key)
}

// IsValidProjectKey checks a project key: a leading letter followed by
// uppercase letters, digits or underscores.
func IsValidProjectKey(key string) bool {
	if key == "" || len(key) > 255 {
		return false
	}
	for i, char := range key {
		switch {
		case char >= 'A' && char <= 'Z':
		case i > 0 && ((char >= '0' && char <= '9') || char == '_'):
		default:
			return false
		}
	}
	return true
}

// SanitizeProjectKey trims and uppercases a user-supplied project key
func SanitizeProjectKey(key string) string {
	return strings.ToUpper(strings.TrimSpace(key))
}

// ProjectFromIssueKey returns the prefix of an issue key such as SPARK-123,
// or "" when the key has no project prefix.
func ProjectFromIssueKey(key string) string {
	i := strings.Index(key, "-")
	if i <= 0 {
		return ""
	}
	return key[:i]
}
