package exporter_test

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitesearch/internal/exporter"
	"sitesearch/internal/storage"
)

func TestWrite(t *testing.T) {
	store, err := storage.NewStore(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	rootID, err := store.IndexPage(&storage.IndexedDoc{
		Page: storage.Page{
			URL:          "http://e.com/",
			Title:        "Root Page",
			LastModified: "Mon, 06 Jan 2025 10:00:00 GMT",
			Size:         42,
			Keywords:     []storage.Keyword{{Stem: "search", Frequency: 7}, {Stem: "engin", Frequency: 3}},
		},
		Links: []string{"http://e.com/child"},
	})
	require.NoError(t, err)

	_, err = store.IndexPage(&storage.IndexedDoc{
		Page: storage.Page{
			URL:          "http://e.com/child",
			Title:        "Child Page",
			LastModified: "N/A",
			Size:         10,
			ParentID:     &rootID,
		},
	})
	require.NoError(t, err)

	var out strings.Builder
	require.NoError(t, exporter.Write(&out, store, 30))
	text := out.String()

	assert.Contains(t, text, "Page title: Root Page")
	assert.Contains(t, text, "Last modified date: Mon, 06 Jan 2025 10:00:00 GMT, size of page: 42 words")
	assert.Contains(t, text, "Keywords: search (7); engin (3)")
	assert.Contains(t, text, "Child http://e.com/child")
	assert.Contains(t, text, "Parent None")
	assert.Contains(t, text, "Parent http://e.com/")
}

func TestWriteRespectsLimit(t *testing.T) {
	store, err := storage.NewStore(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	for _, url := range []string{"http://e.com/1", "http://e.com/2", "http://e.com/3"} {
		_, err := store.IndexPage(&storage.IndexedDoc{
			Page: storage.Page{URL: url, Title: url, LastModified: "N/A"},
		})
		require.NoError(t, err)
	}

	var out strings.Builder
	require.NoError(t, exporter.Write(&out, store, 2))

	assert.Equal(t, 2, strings.Count(out.String(), "Page title:"))
	assert.NotContains(t, out.String(), "http://e.com/3")
}
