// Package exporter writes a plain-text report of the first N indexed
// pages: title, URL, metadata, keywords and the crawl tree edges.
package exporter

import (
	"fmt"
	"io"
	"strings"

	"sitesearch/internal/storage"
)

const separator = "------------------------------------------------------------------------------------"

// Write renders up to limit pages to w in insertion order.
func Write(w io.Writer, store *storage.Store, limit int) error {
	pages, err := store.FirstPages(limit)
	if err != nil {
		return err
	}

	for _, page := range pages {
		fmt.Fprintf(w, "Page title: %s\n", page.Title)
		fmt.Fprintf(w, "URL: %s\n", page.URL)
		fmt.Fprintf(w, "Last modified date: %s, size of page: %d words\n", page.LastModified, page.Size)

		keywords := make([]string, len(page.Keywords))
		for i, kw := range page.Keywords {
			keywords[i] = fmt.Sprintf("%s (%d)", kw.Stem, kw.Frequency)
		}
		fmt.Fprintf(w, "Keywords: %s\n", strings.Join(keywords, "; "))

		parent := "None"
		if page.ParentID != nil {
			if pp, err := store.PageByID(*page.ParentID); err == nil {
				parent = pp.URL
			}
		}
		fmt.Fprintf(w, "Parent %s\n", parent)

		children, err := store.ChildrenOf(page.ID)
		if err != nil {
			return err
		}
		if len(children) == 0 {
			fmt.Fprintln(w, "None")
		} else {
			for _, child := range children {
				fmt.Fprintf(w, "Child %s\n", child)
			}
		}
		fmt.Fprintln(w, separator)
	}
	return nil
}
