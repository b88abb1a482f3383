// Package queryparse turns a raw query string into the term and
// phrase parts consumed by the ranker. Quoted spans become explicit
// phrases; the remaining tokens are emitted as single terms and also
// recombined into adjacent bigram and trigram phrases, so a phrase
// boosts term-level matches instead of replacing them.
package queryparse

import (
	"strings"

	"sitesearch/internal/textproc"
)

// Kind distinguishes single terms from phrases.
type Kind int

const (
	KindTerm Kind = iota
	KindPhrase
)

// Part is one unit of a parsed query.
type Part struct {
	Kind Kind
	Text string
}

// Parser splits queries against the shared stop-word set.
type Parser struct {
	proc *textproc.Processor
}

func NewParser() *Parser {
	return &Parser{proc: textproc.NewProcessor()}
}

// Parse never fails: unterminated quotes degrade to plain tokens.
func (p *Parser) Parse(raw string) []Part {
	quoted, remainder := splitQuoted(strings.ToLower(raw))

	tokens := make([]string, 0)
	for _, tok := range p.proc.Tokens(remainder) {
		if textproc.IsStopWord(tok) {
			continue
		}
		tokens = append(tokens, tok)
	}

	parts := make([]Part, 0, len(tokens)+len(quoted))
	for _, tok := range tokens {
		parts = append(parts, Part{Kind: KindTerm, Text: tok})
	}

	seen := make(map[string]bool)
	addPhrase := func(text string) {
		if text == "" || seen[text] {
			return
		}
		seen[text] = true
		parts = append(parts, Part{Kind: KindPhrase, Text: text})
	}

	for _, phrase := range quoted {
		addPhrase(strings.TrimSpace(phrase))
	}
	for _, n := range []int{2, 3} {
		for i := 0; i+n <= len(tokens); i++ {
			addPhrase(strings.Join(tokens[i:i+n], " "))
		}
	}
	return parts
}

// splitQuoted extracts double-quoted spans and returns them together
// with the query text left over once the spans are removed. An
// unbalanced trailing quote leaves its text in the remainder.
func splitQuoted(raw string) (quoted []string, remainder string) {
	var rest strings.Builder
	for {
		open := strings.IndexByte(raw, '"')
		if open < 0 {
			rest.WriteString(raw)
			break
		}
		closing := strings.IndexByte(raw[open+1:], '"')
		if closing < 0 {
			// Unterminated phrase: keep everything as plain text.
			rest.WriteString(raw[:open])
			rest.WriteByte(' ')
			rest.WriteString(raw[open+1:])
			break
		}
		rest.WriteString(raw[:open])
		rest.WriteByte(' ')
		quoted = append(quoted, raw[open+1:open+1+closing])
		raw = raw[open+closing+2:]
	}
	return quoted, rest.String()
}
