package transform

import (
	"strings"

	"jiradataset/pkg/jira"
	"jiradataset/pkg/models"
)

// Placeholders for missing issue fields
const (
	UnknownValue    = "Unknown"
	UnassignedValue = "Unassigned"
)

// FromIssue converts a raw search hit into a cleaned issue. It returns false
// when the issue has no key.
func FromIssue(issue jira.Issue) (models.Issue, bool) {
	if issue.Key == "" {
		return models.Issue{}, false
	}
	f := issue.Fields

	project := jira.ProjectFromIssueKey(issue.Key)
	if project == "" {
		project = UnknownValue
	}

	labels := []string(f.Labels)
	if labels == nil {
		labels = []string{}
	}

	return models.Issue{
		IssueKey:    issue.Key,
		Project:     project,
		Title:       CleanHTML(f.Summary.String()),
		Description: CleanHTML(f.Description.String()),
		Status:      orDefault(f.Status.Label(), UnknownValue),
		Priority:    orDefault(f.Priority.Label(), UnknownValue),
		Reporter:    orDefault(f.Reporter.Label(), UnknownValue),
		Assignee:    orDefault(f.Assignee.Label(), UnassignedValue),
		Created:     f.Created.String(),
		Updated:     f.Updated.String(),
		Labels:      labels,
		Comments:    comments(f.Comment),
	}, true
}

func comments(page *jira.CommentPage) []models.Comment {
	out := []models.Comment{}
	if page == nil {
		return out
	}
	for _, c := range page.Comments {
		body := CleanHTML(c.Body.String())
		if body == "" {
			continue
		}
		author := UnknownValue
		if c.Author != nil {
			if c.Author.Name != "" {
				author = c.Author.Name
			} else if c.Author.DisplayName != "" {
				author = c.Author.DisplayName
			}
		}
		out = append(out, models.Comment{Author: author, Body: body})
	}
	return out
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
