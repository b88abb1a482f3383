package queryparse_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"sitesearch/internal/queryparse"
)

func collect(parts []queryparse.Part) (terms, phrases []string) {
	for _, part := range parts {
		switch part.Kind {
		case queryparse.KindTerm:
			terms = append(terms, part.Text)
		case queryparse.KindPhrase:
			phrases = append(phrases, part.Text)
		}
	}
	return terms, phrases
}

func TestParseQuotedPhrase(t *testing.T) {
	p := queryparse.NewParser()

	terms, phrases := collect(p.Parse(`hello "big data" world`))

	// The quoted span is removed before n-gram generation, so the
	// only generated bigram comes from [hello, world].
	assert.Equal(t, []string{"hello", "world"}, terms)
	assert.ElementsMatch(t, []string{"big data", "hello world"}, phrases)
}

func TestParseGeneratedNGrams(t *testing.T) {
	p := queryparse.NewParser()

	terms, phrases := collect(p.Parse("web search engine design"))

	assert.Equal(t, []string{"web", "search", "engine", "design"}, terms)
	assert.ElementsMatch(t, []string{
		"web search", "search engine", "engine design",
		"web search engine", "search engine design",
	}, phrases)
}

func TestParseStopWordsDropped(t *testing.T) {
	p := queryparse.NewParser()

	terms, phrases := collect(p.Parse("the quick and the brown"))

	assert.Equal(t, []string{"quick", "brown"}, terms)
	assert.ElementsMatch(t, []string{"quick brown"}, phrases)
}

func TestParseDuplicatePhrasesCollapse(t *testing.T) {
	p := queryparse.NewParser()

	_, phrases := collect(p.Parse(`"big data" big data`))

	seen := make(map[string]int)
	for _, phrase := range phrases {
		seen[phrase]++
	}
	assert.Equal(t, 1, seen["big data"], "explicit and generated phrase must collapse")
}

func TestParseUnterminatedQuote(t *testing.T) {
	p := queryparse.NewParser()

	terms, phrases := collect(p.Parse(`hello "big data`))

	assert.Equal(t, []string{"hello", "big", "data"}, terms)
	assert.ElementsMatch(t, []string{"hello big", "big data", "hello big data"}, phrases)
}

func TestParseCaseFolding(t *testing.T) {
	p := queryparse.NewParser()

	terms, phrases := collect(p.Parse(`Hello "Big Data"`))

	assert.Equal(t, []string{"hello"}, terms)
	assert.ElementsMatch(t, []string{"big data"}, phrases)
}

func TestParseEmpty(t *testing.T) {
	p := queryparse.NewParser()

	assert.Empty(t, p.Parse(""))
	assert.Empty(t, p.Parse("   "))
	assert.Empty(t, p.Parse("the of and"))
}
