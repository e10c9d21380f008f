package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageStoreSaveAndLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "raw")
	store, err := NewPageStore(dir)
	require.NoError(t, err)

	payload := map[string]interface{}{"total": 237, "issues": []interface{}{map[string]interface{}{"key": "SPARK-1"}}}
	require.NoError(t, store.SavePage("SPARK", 0, payload))

	path := filepath.Join(dir, "SPARK_page_0.json")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "{\n  \""), "artifact should be pretty-printed")

	var loaded map[string]json.RawMessage
	require.NoError(t, store.LoadPage("SPARK", 0, &loaded))
	assert.JSONEq(t, "237", string(loaded["total"]))

	assert.Equal(t, 1, store.Count("SPARK"))

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestPageStoreOverwrite(t *testing.T) {
	store, err := NewPageStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.SavePage("KAFKA", 2, map[string]int{"total": 1}))
	require.NoError(t, store.SavePage("KAFKA", 2, map[string]int{"total": 2}))

	var loaded map[string]int
	require.NoError(t, store.LoadPage("KAFKA", 2, &loaded))
	assert.Equal(t, 2, loaded["total"])
	assert.Equal(t, 1, store.Count("KAFKA"))
}

func TestPageStoreListPagesNumericOrder(t *testing.T) {
	store, err := NewPageStore(t.TempDir())
	require.NoError(t, err)

	for _, page := range []int{10, 2, 0, 1, 11} {
		require.NoError(t, store.SavePage("HADOOP", page, map[string]int{"total": 0}))
	}
	require.NoError(t, store.SavePage("HADOOP_EXTRA", 0, map[string]int{"total": 0}))

	pages, err := store.ListPages("HADOOP")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 10, 11}, pages)

	projects, err := store.Projects()
	require.NoError(t, err)
	assert.Equal(t, []string{"HADOOP", "HADOOP_EXTRA"}, projects)
}

func TestPageStoreScansExistingFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "SPARK_page_3.json"), []byte(`{"total":0}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "SPARK_page_x.json"), []byte(`{}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0644))

	store, err := NewPageStore(dir)
	require.NoError(t, err)

	assert.Equal(t, 1, store.Count("SPARK"))
	pages, err := store.ListPages("SPARK")
	require.NoError(t, err)
	assert.Equal(t, []int{3}, pages)
}

func TestPageStoreForgetsRemovedFiles(t *testing.T) {
	store, err := NewPageStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.SavePage("SPARK", 0, map[string]int{"total": 1}))
	require.NoError(t, store.SavePage("SPARK", 1, map[string]int{"total": 1}))
	require.NoError(t, store.SavePage("KAFKA", 0, map[string]int{"total": 0}))

	require.NoError(t, os.Remove(store.PagePath("SPARK", 1)))
	require.NoError(t, os.Remove(store.PagePath("KAFKA", 0)))

	pages, err := store.ListPages("SPARK")
	require.NoError(t, err)
	assert.Equal(t, []int{0}, pages)

	projects, err := store.Projects()
	require.NoError(t, err)
	assert.Equal(t, []string{"SPARK"}, projects)
	assert.Zero(t, store.Count("KAFKA"))
}

func TestParsePageFileName(t *testing.T) {
	tests := []struct {
		name    string
		project string
		page    int
		ok      bool
	}{
		{"SPARK_page_0.json", "SPARK", 0, true},
		{"MY_PROJ_page_12.json", "MY_PROJ", 12, true},
		{"SPARK_page_0.json.tmp", "", 0, false},
		{"SPARK_page_.json", "", 0, false},
		{"_page_1.json", "", 0, false},
		{"SPARK_page_-1.json", "", 0, false},
		{"SPARK_processed.json", "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			project, page, ok := ParsePageFileName(tt.name)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.project, project)
			assert.Equal(t, tt.page, page)
		})
	}
	assert.Equal(t, "SPARK_page_7.json", PageFileName("SPARK", 7))
}

func TestWriteJSONAtomicCreatesDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "out.json")
	require.NoError(t, WriteJSONAtomic(path, []string{"<b>x</b>"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<b>x</b>")
}
