package tasks

import (
	"fmt"
	"strings"

	"jiradataset/pkg/models"
)

var (
	bugKeywords         = []string{"bug", "error", "exception", "crash", "failure", "broken", "fix", "npe", "nullpointer"}
	featureKeywords     = []string{"feature", "add", "new", "implement", "support"}
	improvementKeywords = []string{"improve", "optimize", "enhance", "refactor", "cleanup", "performance"}
	resolutionKeywords  = []string{"fixed", "resolved", "merged", "closed"}
)

// Text limits, in characters
const (
	shortDescriptionLimit = 200
	summaryContextLimit   = 150
	descriptionAnswerMax  = 500
	resolutionAnswerMax   = 300
)

// Classify labels an issue by keyword precedence Bug, Feature, Improvement,
// falling back to Task. Keywords match as substrings of the lowercased title
// and description.
func Classify(issue models.Issue) string {
	combined := strings.ToLower(issue.Title + " " + issue.Description)

	switch {
	case containsAny(combined, bugKeywords):
		return models.ClassBug
	case containsAny(combined, featureKeywords):
		return models.ClassFeature
	case containsAny(combined, improvementKeywords):
		return models.ClassImprovement
	default:
		return models.ClassTask
	}
}

// Summarize builds a short summary from title, description and status
func Summarize(issue models.Issue) string {
	var summary string
	switch {
	case issue.Title != "":
		summary = issue.Title
		if issue.Description != "" && runeLen(issue.Description) < shortDescriptionLimit {
			summary = issue.Title + ". " + truncate(issue.Description, summaryContextLimit)
		}
	case issue.Description != "":
		summary = truncate(issue.Description, shortDescriptionLimit)
	default:
		summary = "No description available"
	}

	if issue.Status != "" && strings.Contains(strings.ToLower(issue.Status), "resolve") {
		summary = fmt.Sprintf("%s [Status: %s]", summary, issue.Status)
	}
	return strings.TrimSpace(summary)
}

// QnA builds question/answer pairs about an issue
func QnA(issue models.Issue) []models.QnA {
	qna := []models.QnA{}
	key := issue.IssueKey

	if issue.Title != "" {
		qna = append(qna, models.QnA{
			Question: fmt.Sprintf("What is the issue in %s?", key),
			Answer:   issue.Title,
		})
	}
	if issue.Description != "" {
		qna = append(qna, models.QnA{
			Question: fmt.Sprintf("What is the description of %s?", key),
			Answer:   truncate(issue.Description, descriptionAnswerMax),
		})
	}
	if issue.Status != "" {
		qna = append(qna, models.QnA{
			Question: fmt.Sprintf("What is the status of %s?", key),
			Answer:   issue.Status,
		})
	}

	// latest comment announcing a resolution
	for i := len(issue.Comments) - 1; i >= 0; i-- {
		body := issue.Comments[i].Body
		if containsAny(strings.ToLower(body), resolutionKeywords) {
			qna = append(qna, models.QnA{
				Question: fmt.Sprintf("How was %s resolved?", key),
				Answer:   truncate(body, resolutionAnswerMax),
			})
			break
		}
	}
	return qna
}

// Derive attaches the derived tasks to an issue
func Derive(issue models.Issue) models.Record {
	return models.Record{
		Issue: issue,
		DerivedTasks: models.DerivedTasks{
			Summarization:  Summarize(issue),
			Classification: Classify(issue),
			QnA:            QnA(issue),
		},
	}
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

func runeLen(s string) int {
	return len([]rune(s))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
