package textproc_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitesearch/internal/textproc"
)

func TestProcessPositions(t *testing.T) {
	proc := textproc.NewProcessor()

	tests := []struct {
		name      string
		input     string
		positions map[string][]int
	}{
		{
			name:  "stop words do not consume position slots",
			input: "the quick brown fox jumps over the lazy dog",
			positions: map[string][]int{
				"quick": {0},
				"brown": {1},
				"fox":   {2},
				"jump":  {3},
				"lazi":  {4},
				"dog":   {5},
			},
		},
		{
			name:  "repeated stems accumulate positions in order",
			input: "testing tests tested",
			positions: map[string][]int{
				"test": {0, 1, 2},
			},
		},
		{
			name:  "punctuation separates tokens",
			input: "machine-learning, deep_learning!",
			positions: map[string][]int{
				"machin": {0},
				"deep":   {2},
				"learn":  {1, 3},
			},
		},
		{
			name:      "empty input",
			input:     "",
			positions: map[string][]int{},
		},
		{
			name:      "only stop words",
			input:     "the and or but",
			positions: map[string][]int{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := proc.Process(tt.input)
			assert.Equal(t, tt.positions, got.Positions)

			total := 0
			for _, pos := range got.Positions {
				total += len(pos)
			}
			assert.Len(t, got.Stems, total, "flattened stream length must match position count")
		})
	}
}

func TestProcessDeterministic(t *testing.T) {
	proc := textproc.NewProcessor()
	const text = "Running runners ran quickly through the organization"

	first := proc.Process(text)
	second := proc.Process(text)
	assert.Equal(t, first, second)
}

func TestTokensKeepStopWords(t *testing.T) {
	proc := textproc.NewProcessor()

	tokens := proc.Tokens("The quick brown fox")
	assert.Equal(t, []string{"the", "quick", "brown", "fox"}, tokens)
}

func TestMaxFrequency(t *testing.T) {
	proc := textproc.NewProcessor()

	res := proc.Process("data data data mining mining web")
	assert.Equal(t, 3, res.MaxFrequency())

	empty := proc.Process("")
	assert.Equal(t, 0, empty.MaxFrequency())
}

func TestTopStems(t *testing.T) {
	proc := textproc.NewProcessor()

	res := proc.Process("cat cat cat dog dog bird")
	top := res.TopStems(2)
	require.Len(t, top, 2)
	assert.Equal(t, textproc.StemCount{Stem: "cat", Frequency: 3}, top[0])
	assert.Equal(t, textproc.StemCount{Stem: "dog", Frequency: 2}, top[1])
}

func TestIsStopWord(t *testing.T) {
	assert.True(t, textproc.IsStopWord("the"))
	assert.True(t, textproc.IsStopWord("and"))
	assert.False(t, textproc.IsStopWord("cat"))
}
