// Package ranker answers ranked keyword and phrase queries against
// the index store using a TF-IDF vector-space model. Title matches
// outweigh body matches and phrase matches outweigh single terms;
// both biases are tunable constants, not derived quantities.
package ranker

import (
	"math"
	"sort"
	"strings"

	"sitesearch/internal/queryparse"
	"sitesearch/internal/storage"
	"sitesearch/internal/textproc"
)

const (
	// DefaultTitleWeight multiplies title-field contributions.
	DefaultTitleWeight = 3.0
	// DefaultPhraseWeight multiplies phrase contributions on top of
	// the field weight.
	DefaultPhraseWeight = 2.0
	// MaxResults truncates the ranked output.
	MaxResults = 50
)

// Result is one scored page.
type Result struct {
	Page  *storage.Page
	Score float64
}

// Ranker is read-only and safe for concurrent queries.
type Ranker struct {
	store        *storage.Store
	parser       *queryparse.Parser
	proc         *textproc.Processor
	titleWeight  float64
	phraseWeight float64
}

// Option configures a Ranker.
type Option func(*Ranker)

// WithTitleWeight overrides the title/body bias. Values at or below
// the implicit body weight of 1 defeat the title preference.
func WithTitleWeight(w float64) Option {
	return func(r *Ranker) {
		if w > 0 {
			r.titleWeight = w
		}
	}
}

// WithPhraseWeight overrides the phrase/term bias.
func WithPhraseWeight(w float64) Option {
	return func(r *Ranker) {
		if w > 0 {
			r.phraseWeight = w
		}
	}
}

func New(store *storage.Store, opts ...Option) *Ranker {
	r := &Ranker{
		store:        store,
		parser:       queryparse.NewParser(),
		proc:         textproc.NewProcessor(),
		titleWeight:  DefaultTitleWeight,
		phraseWeight: DefaultPhraseWeight,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Search returns up to MaxResults pages scored against the query,
// descending score, ties broken by page id ascending. Pages with zero
// total score are excluded.
func (r *Ranker) Search(query string) ([]Result, error) {
	parts := r.parser.Parse(query)
	if len(parts) == 0 {
		return nil, nil
	}

	totalPages, err := r.store.PageCount()
	if err != nil {
		return nil, err
	}
	if totalPages == 0 {
		return nil, nil
	}

	acc := &accumulator{
		store:  r.store,
		total:  totalPages,
		scores: make(map[int64]float64),
		pages:  make(map[int64]*storage.Page),
	}

	for _, part := range parts {
		switch part.Kind {
		case queryparse.KindTerm:
			if err := r.scoreTerm(acc, part.Text); err != nil {
				return nil, err
			}
		case queryparse.KindPhrase:
			if err := r.scorePhrase(acc, part.Text); err != nil {
				return nil, err
			}
		}
	}

	results := make([]Result, 0, len(acc.scores))
	for pageID, score := range acc.scores {
		if score <= 0 {
			continue
		}
		page, err := acc.page(pageID)
		if err != nil {
			return nil, err
		}
		results = append(results, Result{Page: page, Score: score})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Page.ID < results[j].Page.ID
	})
	if len(results) > MaxResults {
		results = results[:MaxResults]
	}
	return results, nil
}

// accumulator gathers per-page scores and caches page rows so a page
// touched by several query parts is fetched once.
type accumulator struct {
	store  *storage.Store
	total  int
	scores map[int64]float64
	pages  map[int64]*storage.Page
}

func (a *accumulator) page(id int64) (*storage.Page, error) {
	if page, ok := a.pages[id]; ok {
		return page, nil
	}
	page, err := a.store.PageByID(id)
	if err != nil {
		return nil, err
	}
	a.pages[id] = page
	return page, nil
}

// idf applies the smoothed inverse document frequency.
func (a *accumulator) idf(df int) float64 {
	return math.Log((float64(a.total) + 1) / (float64(df) + 0.5))
}

// normalizedTF is 0.5 + 0.5*freq/maxTF, or 0 when the field is empty.
func normalizedTF(freq, maxTF int) float64 {
	if freq <= 0 || maxTF <= 0 {
		return 0
	}
	return 0.5 + 0.5*float64(freq)/float64(maxTF)
}

func (r *Ranker) scoreTerm(acc *accumulator, term string) error {
	stem := textproc.Stem(term)
	if stem == "" {
		return nil
	}

	stats, err := r.store.StatsForStem(stem)
	if err != nil {
		return err
	}

	if err := r.scoreField(acc, storage.FieldTitle, stem, stats.DFTitle, r.titleWeight); err != nil {
		return err
	}
	return r.scoreField(acc, storage.FieldBody, stem, stats.DFBody, 1.0)
}

func (r *Ranker) scoreField(acc *accumulator, field storage.Field, stem string, df int, fieldWeight float64) error {
	postings, err := r.store.PostingsForStem(field, stem)
	if err != nil {
		return err
	}
	idf := acc.idf(df)

	for _, posting := range postings {
		page, err := acc.page(posting.PageID)
		if err != nil {
			return err
		}
		maxTF := page.MaxTFBody
		if field == storage.FieldTitle {
			maxTF = page.MaxTFTitle
		}
		tf := normalizedTF(posting.Frequency, maxTF)
		if tf == 0 {
			continue
		}
		acc.scores[posting.PageID] += tf * idf * fieldWeight
	}
	return nil
}

func (r *Ranker) scorePhrase(acc *accumulator, phrase string) error {
	stems := r.phraseStems(phrase)
	if len(stems) == 0 {
		return nil
	}

	first := stems[0]
	stats, err := r.store.StatsForStem(first)
	if err != nil {
		return err
	}

	// Only pages already known to hold the first stem can match the
	// phrase, which bounds evaluation to plausible candidates.
	candidates := make(map[int64]bool)
	for _, field := range []storage.Field{storage.FieldTitle, storage.FieldBody} {
		postings, err := r.store.PostingsForStem(field, first)
		if err != nil {
			return err
		}
		for _, posting := range postings {
			candidates[posting.PageID] = true
		}
	}

	for pageID := range candidates {
		page, err := acc.page(pageID)
		if err != nil {
			return err
		}

		if page.MaxTFTitle > 0 {
			count, err := r.phraseCount(storage.FieldTitle, pageID, stems)
			if err != nil {
				return err
			}
			if count > 0 {
				tf := normalizedTF(count, page.MaxTFTitle)
				acc.scores[pageID] += tf * acc.idf(stats.DFTitle) * r.titleWeight * r.phraseWeight
			}
		}
		if page.MaxTFBody > 0 {
			count, err := r.phraseCount(storage.FieldBody, pageID, stems)
			if err != nil {
				return err
			}
			if count > 0 {
				tf := normalizedTF(count, page.MaxTFBody)
				acc.scores[pageID] += tf * acc.idf(stats.DFBody) * r.phraseWeight
			}
		}
	}
	return nil
}

// phraseStems splits a phrase into its stemmed word sequence. Stop
// words are kept: a quoted phrase matches only what was indexed, and
// indexed positions never contain stop words.
func (r *Ranker) phraseStems(phrase string) []string {
	tokens := r.proc.Tokens(phrase)
	stems := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if stem := textproc.Stem(tok); stem != "" {
			stems = append(stems, stem)
		}
	}
	return stems
}

func (r *Ranker) phraseCount(field storage.Field, pageID int64, stems []string) (int, error) {
	positions, err := r.store.PagePostings(field, pageID, stems)
	if err != nil {
		return 0, err
	}
	return PhraseMatchCount(positions, stems), nil
}

// PhraseMatchCount counts strictly consecutive runs of the stems in
// the stored position lists: stem i must occur at firstPos+i for
// every i. Order matters and gaps fail.
func PhraseMatchCount(positions map[string][]int, stems []string) int {
	if len(stems) == 0 {
		return 0
	}
	for _, stem := range stems {
		if len(positions[stem]) == 0 {
			return 0
		}
	}

	at := make(map[string]map[int]bool, len(positions))
	for stem, list := range positions {
		set := make(map[int]bool, len(list))
		for _, pos := range list {
			set[pos] = true
		}
		at[stem] = set
	}

	count := 0
	for _, start := range positions[stems[0]] {
		matched := true
		for i := 1; i < len(stems); i++ {
			if !at[stems[i]][start+i] {
				matched = false
				break
			}
		}
		if matched {
			count++
		}
	}
	return count
}

// Similar derives a "find similar" query from a page's stored
// keywords: stop words removed, frequency descending, at most five
// terms.
func (r *Ranker) Similar(pageID int64) (string, error) {
	page, err := r.store.PageByID(pageID)
	if err != nil {
		return "", err
	}

	keywords := make([]storage.Keyword, 0, len(page.Keywords))
	for _, kw := range page.Keywords {
		if textproc.IsStopWord(kw.Stem) {
			continue
		}
		keywords = append(keywords, kw)
	}
	sort.SliceStable(keywords, func(i, j int) bool {
		return keywords[i].Frequency > keywords[j].Frequency
	})
	if len(keywords) > 5 {
		keywords = keywords[:5]
	}

	terms := make([]string, len(keywords))
	for i, kw := range keywords {
		terms[i] = kw.Stem
	}
	return strings.Join(terms, " "), nil
}
