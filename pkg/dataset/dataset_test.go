package dataset

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"jiradataset/pkg/config"
	"jiradataset/pkg/logger"
	"jiradataset/pkg/models"
)

func sampleRecords() []models.Record {
	return []models.Record{
		{
			Issue: models.Issue{IssueKey: "SPARK-1", Project: "SPARK", Title: "a <b> c", Labels: []string{}, Comments: []models.Comment{}},
			DerivedTasks: models.DerivedTasks{
				Summarization:  "a <b> c",
				Classification: models.ClassTask,
				QnA:            []models.QnA{{Question: "q", Answer: "a"}},
			},
		},
		{
			Issue:        models.Issue{IssueKey: "KAFKA-2", Project: "KAFKA", Labels: []string{}, Comments: []models.Comment{}},
			DerivedTasks: models.DerivedTasks{Classification: models.ClassBug, QnA: []models.QnA{}},
		},
	}
}

func readLines(t *testing.T, path string) []map[string]interface{} {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var out []map[string]interface{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var line map[string]interface{}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &line))
		out = append(out, line)
	}
	require.NoError(t, scanner.Err())
	return out
}

func TestJSONLSinkWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "final_dataset.jsonl")
	sink := NewJSONLSink(path, logger.NewNopLogger())

	require.NoError(t, sink.Write(context.Background(), sampleRecords()))

	lines := readLines(t, path)
	require.Len(t, lines, 2)
	assert.Equal(t, "SPARK-1", lines[0]["issue_key"])
	assert.Equal(t, "a <b> c", lines[0]["title"])
	tasks := lines[0]["derived_tasks"].(map[string]interface{})
	assert.Equal(t, "Task", tasks["classification"])
	assert.Equal(t, "KAFKA-2", lines[1]["issue_key"])

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"title":"a <b> c"`)
}

func TestJSONLSinkReplacesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "final_dataset.jsonl")
	sink := NewJSONLSink(path, logger.NewNopLogger())

	require.NoError(t, sink.Write(context.Background(), sampleRecords()))
	require.NoError(t, sink.Write(context.Background(), sampleRecords()[:1]))
	assert.Len(t, readLines(t, path), 1)

	require.NoError(t, sink.Write(context.Background(), nil))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, data)
}

type failingSink struct {
	name   string
	err    error
	writes int
}

func (f *failingSink) Write(ctx context.Context, records []models.Record) error {
	f.writes++
	return f.err
}
func (f *failingSink) Name() string { return f.name }
func (f *failingSink) Close() error { return f.err }

func TestWriteAllAttemptsEverySink(t *testing.T) {
	bad := &failingSink{name: "bad", err: errors.New("disk full")}
	good := &failingSink{name: "good"}

	err := WriteAll(context.Background(), []Sink{bad, good}, sampleRecords())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad sink: disk full")
	assert.Equal(t, 1, good.writes)

	assert.Error(t, CloseAll([]Sink{bad, good}))
	assert.NoError(t, CloseAll([]Sink{good}))
}

func TestOpenDefaultsToJSONL(t *testing.T) {
	dir := t.TempDir()
	sinks, err := Open(context.Background(),
		config.StorageConfig{OutputDir: dir, OutputFile: "final_dataset.jsonl"},
		config.DatasetConfig{}, logger.NewNopLogger())
	require.NoError(t, err)
	require.Len(t, sinks, 1)

	jsonl, ok := sinks[0].(*JSONLSink)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "final_dataset.jsonl"), jsonl.Path())
}

func TestValidTableName(t *testing.T) {
	assert.True(t, ValidTableName("jira_issues"))
	assert.True(t, ValidTableName("_t1"))
	assert.False(t, ValidTableName(""))
	assert.False(t, ValidTableName("1table"))
	assert.False(t, ValidTableName("issues; DROP TABLE x"))
	assert.False(t, ValidTableName("public.issues"))
}

func TestNewPostgresSinkRejectsBadTable(t *testing.T) {
	_, err := NewPostgresSink(context.Background(), "postgres://localhost/db", "bad-name", logger.NewNopLogger())
	assert.ErrorContains(t, err, "invalid table name")
}
