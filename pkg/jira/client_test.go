package jira

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"jiradataset/pkg/config"
	errs "jiradataset/pkg/errors"
	"jiradataset/pkg/logger"
	"jiradataset/pkg/ratelimit"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *logger.TestLogger) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	log := logger.NewTestLogger()
	client := NewClient(config.JiraConfig{
		BaseURL:        server.URL,
		ConnectTimeout: time.Second,
		ReadTimeout:    time.Second,
	}, log)
	return client, log
}

func TestNewClientDefaults(t *testing.T) {
	client := NewClient(config.JiraConfig{}, logger.NewNopLogger())

	assert.Equal(t, DefaultBaseURL, client.BaseURL())
	assert.Equal(t, DefaultUserAgent, client.headers["User-Agent"])
	assert.Equal(t, "application/json", client.headers["Accept"])

	transport, ok := client.httpClient.Transport.(*http.Transport)
	require.True(t, ok)
	assert.Equal(t, 30*time.Second, transport.ResponseHeaderTimeout)
	assert.Equal(t, 60*time.Second, client.httpClient.Timeout)
}

func TestSearchSendsQuery(t *testing.T) {
	var got *http.Request
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.Write([]byte(`{"startAt":100,"maxResults":50,"total":237,"issues":[]}`))
	})
	client.username, client.apiToken = "alice", "token"

	env, err := client.Search(context.Background(), SearchParams{Project: "SPARK", StartAt: 100, MaxResults: 50})
	require.NoError(t, err)

	total, ok := env.Total()
	assert.True(t, ok)
	assert.Equal(t, 237, total)

	require.NotNil(t, got)
	assert.Equal(t, "/search", got.URL.Path)
	q := got.URL.Query()
	assert.Equal(t, "project=SPARK", q.Get("jql"))
	assert.Equal(t, "100", q.Get("startAt"))
	assert.Equal(t, "50", q.Get("maxResults"))
	assert.Equal(t, SearchExpand, q.Get("expand"))
	assert.Equal(t, SearchFields, q.Get("fields"))
	assert.Equal(t, "application/json", got.Header.Get("Accept"))
	assert.Equal(t, DefaultUserAgent, got.Header.Get("User-Agent"))

	user, pass, ok := got.BasicAuth()
	assert.True(t, ok)
	assert.Equal(t, "alice", user)
	assert.Equal(t, "token", pass)
}

func TestSearchClassifiesOutcomes(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		class  errs.Class
	}{
		{"rate limited", http.StatusTooManyRequests, "", errs.ClassRateLimited},
		{"server error", http.StatusInternalServerError, "", errs.ClassServerError},
		{"bad gateway", http.StatusBadGateway, "", errs.ClassServerError},
		{"not found", http.StatusNotFound, `{"errorMessages":["no project"]}`, errs.ClassFatal},
		{"unauthorized", http.StatusUnauthorized, "", errs.ClassFatal},
		{"bad request", http.StatusBadRequest, "", errs.ClassFatal},
		{"empty body", http.StatusOK, "", errs.ClassMalformedResponse},
		{"whitespace body", http.StatusOK, "  \n", errs.ClassMalformedResponse},
		{"invalid json", http.StatusOK, `{invalid json`, errs.ClassMalformedResponse},
		{"json array", http.StatusOK, `[1,2,3]`, errs.ClassFatal},
		{"json string", http.StatusOK, `"hello"`, errs.ClassFatal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			env, err := client.Search(context.Background(), SearchParams{Project: "KAFKA", MaxResults: 50})
			require.Error(t, err)
			assert.Nil(t, env)
			assert.Equal(t, tt.class, errs.ClassOf(err))
		})
	}
}

func TestSearchTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewClient(config.JiraConfig{BaseURL: url, ConnectTimeout: time.Second}, logger.NewNopLogger())
	_, err := client.Search(context.Background(), SearchParams{Project: "HADOOP"})

	require.Error(t, err)
	assert.Equal(t, errs.ClassTransport, errs.ClassOf(err))
}

func TestSearchReadTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.Write([]byte(`{"total":0}`))
	}))
	defer server.Close()

	client := NewClient(config.JiraConfig{
		BaseURL:     server.URL,
		ReadTimeout: 50 * time.Millisecond,
	}, logger.NewNopLogger())

	_, err := client.Search(context.Background(), SearchParams{Project: "SPARK"})
	require.Error(t, err)
	assert.Equal(t, errs.ClassTransport, errs.ClassOf(err))
}

func TestSearchStalledBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"total":`))
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer server.Close()

	client := NewClient(config.JiraConfig{
		BaseURL:        server.URL,
		ConnectTimeout: 50 * time.Millisecond,
		ReadTimeout:    100 * time.Millisecond,
	}, logger.NewNopLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	start := time.Now()
	_, err := client.Search(ctx, SearchParams{Project: "SPARK"})
	require.Error(t, err)
	assert.Equal(t, errs.ClassTransport, errs.ClassOf(err))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestSearchCancelled(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"total":0}`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Search(ctx, SearchParams{Project: "SPARK"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSearchUsesLimiter(t *testing.T) {
	calls := 0
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{"total":0}`))
	})
	client.SetLimiter(ratelimit.NewSlidingWindow(1, time.Hour))

	_, err := client.Search(context.Background(), SearchParams{Project: "SPARK"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = client.Search(ctx, SearchParams{Project: "SPARK"})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, calls)
}

func TestSearchLogsServerErrors(t *testing.T) {
	client, log := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, _ = client.Search(context.Background(), SearchParams{Project: "SPARK"})
	assert.True(t, log.HasMessage("HTTP request server error"))
}
