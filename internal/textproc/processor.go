// Package textproc turns raw page text into a normalized stream of
// stems with positional information. It is the leaf dependency of the
// indexing pipeline, the query parser and the ranker.
package textproc

import (
	"regexp"
	"sort"
	"strings"
)

var tokenPattern = regexp.MustCompile(`[a-z0-9]+`)

// Result is the output of Process: the flattened stem sequence plus a
// map from each stem to the positions it occupies in that sequence.
type Result struct {
	Stems     []string
	Positions map[string][]int
}

// Processor tokenizes and stems text against a fixed stop-word set.
type Processor struct {
	stopWords map[string]bool
}

func NewProcessor() *Processor {
	return &Processor{stopWords: sharedStopWords}
}

// Tokens splits text into lower-cased alphanumeric runs. No stop-word
// filtering is applied; the crawler uses this for raw page word counts.
func (p *Processor) Tokens(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}

// Process tokenizes text, drops stop words and stems what survives.
// Positions are assigned densely over the surviving stems, so a
// dropped stop word never consumes a position slot.
func (p *Processor) Process(text string) Result {
	tokens := p.Tokens(text)

	res := Result{Positions: make(map[string][]int)}
	for _, tok := range tokens {
		if p.stopWords[tok] {
			continue
		}
		stem := Stem(tok)
		if stem == "" {
			continue
		}
		pos := len(res.Stems)
		res.Stems = append(res.Stems, stem)
		res.Positions[stem] = append(res.Positions[stem], pos)
	}
	return res
}

// MaxFrequency returns the highest per-stem occurrence count in the
// result, 0 for an empty result.
func (r Result) MaxFrequency() int {
	max := 0
	for _, positions := range r.Positions {
		if len(positions) > max {
			max = len(positions)
		}
	}
	return max
}

// TopStems returns the n most frequent stems with their counts,
// frequency descending, ties broken alphabetically for determinism.
func (r Result) TopStems(n int) []StemCount {
	counts := make([]StemCount, 0, len(r.Positions))
	for stem, positions := range r.Positions {
		counts = append(counts, StemCount{Stem: stem, Frequency: len(positions)})
	}
	sortStemCounts(counts)
	if len(counts) > n {
		counts = counts[:n]
	}
	return counts
}

// StemCount pairs a stem with its occurrence count in one field.
type StemCount struct {
	Stem      string `json:"stem"`
	Frequency int    `json:"frequency"`
}

func sortStemCounts(counts []StemCount) {
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Frequency != counts[j].Frequency {
			return counts[i].Frequency > counts[j].Frequency
		}
		return counts[i].Stem < counts[j].Stem
	})
}
