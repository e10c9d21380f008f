// Package testutil provides an in-process stand-in for the tracker's search
// API for tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// Request is one search call seen by the server
type Request struct {
	Project    string
	StartAt    int
	MaxResults int
}

// JiraServer serves generated issues for a fixed set of projects
type JiraServer struct {
	*httptest.Server

	mu       sync.Mutex
	totals   map[string]int
	requests []Request
	// Fail, when set, may return a status code to send instead of the page
	Fail func(r Request, attempt int) int
	attempts map[Request]int
}

// NewJiraServer starts a server; totals maps project key to issue count.
// The server is closed when the test ends.
func NewJiraServer(t testing.TB, totals map[string]int) *JiraServer {
	t.Helper()
	s := &JiraServer{
		totals:   totals,
		attempts: make(map[Request]int),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Server.Close)
	return s
}

// Requests returns every request received so far
func (s *JiraServer) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// RequestsFor returns the start offsets requested for project, in order
func (s *JiraServer) RequestsFor(project string) []int {
	var offsets []int
	for _, r := range s.Requests() {
		if r.Project == project {
			offsets = append(offsets, r.StartAt)
		}
	}
	return offsets
}

func (s *JiraServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/search" {
		http.NotFound(w, r)
		return
	}

	q := r.URL.Query()
	project := strings.TrimPrefix(q.Get("jql"), "project=")
	startAt, _ := strconv.Atoi(q.Get("startAt"))
	maxResults, _ := strconv.Atoi(q.Get("maxResults"))
	req := Request{Project: project, StartAt: startAt, MaxResults: maxResults}

	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.attempts[req]++
	attempt := s.attempts[req]
	total, known := s.totals[project]
	fail := s.Fail
	s.mu.Unlock()

	if fail != nil {
		if status := fail(req, attempt); status != 0 {
			w.WriteHeader(status)
			return
		}
	}
	if !known {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"errorMessages": []string{fmt.Sprintf("The value '%s' does not exist for the field 'project'.", project)},
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(Page(project, startAt, maxResults, total))
}

// Page builds a search envelope with generated issues
func Page(project string, startAt, maxResults, total int) map[string]interface{} {
	issues := []interface{}{}
	for i := startAt; i < startAt+maxResults && i < total; i++ {
		issues = append(issues, Issue(project, i+1))
	}
	return map[string]interface{}{
		"expand":     "names,schema",
		"startAt":    startAt,
		"maxResults": maxResults,
		"total":      total,
		"issues":     issues,
	}
}

// Issue builds a generated issue numbered n
func Issue(project string, n int) map[string]interface{} {
	key := fmt.Sprintf("%s-%d", project, n)
	status := "Open"
	if n%2 == 0 {
		status = "Resolved"
	}
	return map[string]interface{}{
		"id":  strconv.Itoa(10000 + n),
		"key": key,
		"fields": map[string]interface{}{
			"summary":     fmt.Sprintf("Fix crash in module %d", n),
			"description": fmt.Sprintf("<p>The <b>worker</b> throws an exception when starting job %d.</p>", n),
			"status":      map[string]interface{}{"name": status},
			"priority":    map[string]interface{}{"name": "Major"},
			"assignee":    nil,
			"reporter":    map[string]interface{}{"name": "reporter", "displayName": "Reporter"},
			"created":     "2024-01-02T03:04:05.000+0000",
			"updated":     "2024-02-03T04:05:06.000+0000",
			"labels":      []string{"generated"},
			"comment": map[string]interface{}{
				"total": 1,
				"comments": []interface{}{
					map[string]interface{}{
						"author": map[string]interface{}{"displayName": "Committer"},
						"body":   "Fixed and merged to master.",
					},
				},
			},
		},
	}
}
