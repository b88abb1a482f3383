package ranker_test

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitesearch/internal/ranker"
	"sitesearch/internal/storage"
)

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.NewStore(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func addPage(t *testing.T, store *storage.Store, url string, title, body map[string][]int) int64 {
	t.Helper()
	id, err := store.IndexPage(&storage.IndexedDoc{
		Page:           storage.Page{URL: url, Title: url, LastModified: "N/A"},
		TitlePositions: title,
		BodyPositions:  body,
	})
	require.NoError(t, err)
	return id
}

func TestPhraseMatchCount(t *testing.T) {
	tests := []struct {
		name      string
		positions map[string][]int
		stems     []string
		want      int
	}{
		{
			name:      "consecutive run matches",
			positions: map[string][]int{"quick": {0}, "brown": {1}, "fox": {2}},
			stems:     []string{"quick", "brown", "fox"},
			want:      1,
		},
		{
			name:      "order matters",
			positions: map[string][]int{"quick": {0}, "brown": {1}},
			stems:     []string{"brown", "quick"},
			want:      0,
		},
		{
			name:      "gap fails",
			positions: map[string][]int{"quick": {0}, "fox": {2}},
			stems:     []string{"quick", "fox"},
			want:      0,
		},
		{
			name:      "missing stem fails",
			positions: map[string][]int{"quick": {0}},
			stems:     []string{"quick", "brown"},
			want:      0,
		},
		{
			name:      "multiple occurrences all count",
			positions: map[string][]int{"big": {0, 5, 9}, "data": {1, 6, 12}},
			stems:     []string{"big", "data"},
			want:      2,
		},
		{
			name:      "empty phrase",
			positions: map[string][]int{"quick": {0}},
			stems:     nil,
			want:      0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ranker.PhraseMatchCount(tt.positions, tt.stems))
		})
	}
}

func TestSearchTitleOutranksBody(t *testing.T) {
	store := newTestStore(t)

	idA := addPage(t, store, "http://e.com/a",
		map[string][]int{"test": {0}}, nil)
	idB := addPage(t, store, "http://e.com/b",
		nil, map[string][]int{"test": {0}})
	// Filler pages so total_pages = 5.
	for i := 0; i < 3; i++ {
		addPage(t, store, fmt.Sprintf("http://e.com/f%d", i),
			nil, map[string][]int{"filler": {0}})
	}

	results, err := ranker.New(store).Search("test")
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, idA, results[0].Page.ID, "title match must dominate body match")
	assert.Equal(t, idB, results[1].Page.ID)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestSearchPhraseBoostsAdjacency(t *testing.T) {
	store := newTestStore(t)

	adjacent := addPage(t, store, "http://e.com/adjacent",
		nil, map[string][]int{"quick": {0}, "brown": {1}, "fox": {2}})
	scattered := addPage(t, store, "http://e.com/scattered",
		nil, map[string][]int{"quick": {0}, "brown": {4}, "fox": {9}})

	results, err := ranker.New(store).Search(`"quick brown fox"`)
	require.NoError(t, err)
	require.NotEmpty(t, results)

	assert.Equal(t, adjacent, results[0].Page.ID)
	for _, res := range results {
		assert.NotEqual(t, scattered, res.Page.ID,
			"a page without the consecutive run earns no phrase score")
	}
}

func TestSearchTermAndPhraseAccumulate(t *testing.T) {
	store := newTestStore(t)

	both := addPage(t, store, "http://e.com/both",
		nil, map[string][]int{"big": {0}, "data": {1}})
	termOnly := addPage(t, store, "http://e.com/term",
		nil, map[string][]int{"big": {0}, "data": {7}})

	results, err := ranker.New(store).Search("big data")
	require.NoError(t, err)
	require.Len(t, results, 2)

	// Both pages score on the terms; the adjacent page adds the
	// generated bigram phrase on top.
	assert.Equal(t, both, results[0].Page.ID)
	assert.Equal(t, termOnly, results[1].Page.ID)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestSearchTieBrokenByPageID(t *testing.T) {
	store := newTestStore(t)

	first := addPage(t, store, "http://e.com/1",
		nil, map[string][]int{"cat": {0}})
	second := addPage(t, store, "http://e.com/2",
		nil, map[string][]int{"cat": {0}})

	results, err := ranker.New(store).Search("cat")
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, results[0].Score, results[1].Score)
	assert.Equal(t, first, results[0].Page.ID)
	assert.Equal(t, second, results[1].Page.ID)
}

func TestSearchNoMatches(t *testing.T) {
	store := newTestStore(t)
	addPage(t, store, "http://e.com/a", nil, map[string][]int{"cat": {0}})

	results, err := ranker.New(store).Search("zebra")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchEmptyIndex(t *testing.T) {
	store := newTestStore(t)

	results, err := ranker.New(store).Search("anything")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchStemsQueryTerms(t *testing.T) {
	store := newTestStore(t)
	// Indexed text "running" is stored as the stem "run".
	id := addPage(t, store, "http://e.com/run",
		nil, map[string][]int{"run": {0}})

	results, err := ranker.New(store).Search("running")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, id, results[0].Page.ID)
}

func TestSimilar(t *testing.T) {
	store := newTestStore(t)

	id, err := store.UpsertPage(&storage.Page{
		URL:          "http://e.com/a",
		Title:        "A",
		LastModified: "N/A",
		Keywords: []storage.Keyword{
			{Stem: "cat", Frequency: 9},
			{Stem: "the", Frequency: 8},
			{Stem: "dog", Frequency: 3},
		},
	})
	require.NoError(t, err)

	query, err := ranker.New(store).Similar(id)
	require.NoError(t, err)
	assert.Equal(t, "cat dog", query, "stop words filtered, frequency sorted")
}

func TestSimilarCapsAtFiveTerms(t *testing.T) {
	store := newTestStore(t)

	keywords := make([]storage.Keyword, 8)
	for i := range keywords {
		keywords[i] = storage.Keyword{Stem: fmt.Sprintf("stem%d", i), Frequency: 10 - i}
	}
	id, err := store.UpsertPage(&storage.Page{
		URL: "http://e.com/a", Title: "A", LastModified: "N/A", Keywords: keywords,
	})
	require.NoError(t, err)

	query, err := ranker.New(store).Similar(id)
	require.NoError(t, err)
	assert.Equal(t, "stem0 stem1 stem2 stem3 stem4", query)
}

func TestSimilarUnknownPage(t *testing.T) {
	store := newTestStore(t)

	_, err := ranker.New(store).Similar(99)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
