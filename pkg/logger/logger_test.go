package logger

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"jiradataset/pkg/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.LoggingConfig
		wantErr bool
	}{
		{"info level", &config.LoggingConfig{Level: "info"}, false},
		{"debug level", &config.LoggingConfig{Level: "debug"}, false},
		{"invalid level", &config.LoggingConfig{Level: "chatty"}, true},
		{"file output", &config.LoggingConfig{Level: "info", File: filepath.Join(t.TempDir(), "logs", "run.log")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, l)
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected zerolog.Level
		wantErr  bool
	}{
		{"debug", zerolog.DebugLevel, false},
		{"INFO", zerolog.InfoLevel, false},
		{"", zerolog.InfoLevel, false},
		{"warning", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"disabled", zerolog.Disabled, false},
		{"trace", zerolog.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			level, err := parseLogLevel(tt.level)
			assert.Equal(t, tt.wantErr, err != nil)
			assert.Equal(t, tt.expected, level)
		})
	}
}

func TestZerologLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	zlog := zerolog.New(&buf)
	l := &zerologLogger{logger: &zlog, fields: map[string]interface{}{}}

	l.WithField("project", "SPARK").WithFields(map[string]interface{}{"page": 3}).Info("page saved")
	out := buf.String()
	assert.Contains(t, out, `"project":"SPARK"`)
	assert.Contains(t, out, `"page":3`)
	assert.Contains(t, out, "page saved")

	buf.Reset()
	l.WithError(errors.New("disk full")).Error("save failed")
	assert.Contains(t, buf.String(), "disk full")

	buf.Reset()
	l.WarnWithFields("backing off", map[string]interface{}{"delay": 2 * time.Second})
	assert.Contains(t, buf.String(), `"delay":2000`)
}

func TestWithFieldsDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	zlog := zerolog.New(&buf)
	parent := &zerologLogger{logger: &zlog, fields: map[string]interface{}{}}

	_ = parent.WithField("project", "KAFKA")
	assert.Empty(t, parent.fields)
}

func TestTestLogger(t *testing.T) {
	tl := NewTestLogger()

	tl.Info("starting")
	tl.WithField("project", "HADOOP").WarnWithFields("page failed", map[string]interface{}{"page": 2})
	tl.WithError(errors.New("boom")).Error("aborted")

	msgs := tl.GetMessages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "WARN", msgs[1].Level)
	assert.Equal(t, "HADOOP", msgs[1].Fields["project"])
	assert.Equal(t, 2, msgs[1].Fields["page"])
	assert.EqualError(t, msgs[2].Error, "boom")

	assert.True(t, tl.HasMessage("page failed"))
	assert.True(t, tl.HasMessageContaining("abort"))
	assert.True(t, tl.HasError())
	assert.Len(t, tl.GetMessagesByLevel("INFO"), 1)
	assert.Contains(t, tl.String(), "[ERROR] aborted")

	tl.Clear()
	assert.Empty(t, tl.GetMessages())
}

func TestLogHelpers(t *testing.T) {
	tl := NewTestLogger()

	LogRequest(tl, "GET", "http://jira/search", 503, 120*time.Millisecond)
	LogRequest(tl, "GET", "http://jira/search", 404, time.Millisecond)
	LogPageSaved(tl, "SPARK", 1, 4)
	LogStageSummary(tl, "scrape", map[string]int{"SPARK": 4})

	assert.Len(t, tl.GetMessagesByLevel("ERROR"), 1)
	assert.Len(t, tl.GetMessagesByLevel("WARN"), 1)
	assert.True(t, tl.HasMessage("Page saved"))
	assert.True(t, tl.HasMessage("scrape completed"))

	saved := tl.GetMessagesByLevel("INFO")[0]
	assert.Equal(t, "50.0%", saved.Fields["progress"])
}
