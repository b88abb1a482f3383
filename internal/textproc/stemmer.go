package textproc

import (
	"github.com/kljensen/snowball"
)

// Stem reduces a single lower-cased token to its root form.
// Falls back to the input word if snowball rejects it.
func Stem(word string) string {
	stemmed, err := snowball.Stem(word, "english", true)
	if err != nil {
		return word
	}
	return stemmed
}
