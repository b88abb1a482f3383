// Package storage persists the crawl output: pages, positional
// postings for the title and body index spaces, per-stem document
// frequencies and the link discovery records. It is pure storage;
// ranking and crawl policy live elsewhere.
package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// Field selects one of the two index spaces.
type Field string

const (
	FieldTitle Field = "title"
	FieldBody  Field = "body"
)

// Keyword is a display-only (stem, frequency) pair kept on a page.
type Keyword struct {
	Stem      string `json:"stem"`
	Frequency int    `json:"frequency"`
}

// Page is one crawled document. Immutable once committed.
type Page struct {
	ID           int64
	URL          string
	Title        string
	LastModified string
	Size         int
	Keywords     []Keyword
	ParentID     *int64
	MaxTFTitle   int
	MaxTFBody    int
}

// Posting records the positions a stem occupies in one page's field.
type Posting struct {
	Stem      string
	PageID    int64
	Positions []int
	Frequency int
}

// Stats holds the per-field document frequencies of a stem.
type Stats struct {
	Stem    string
	DFTitle int
	DFBody  int
}

// IndexedDoc is the atomic unit of work produced for one URL: the
// page row, both posting sets and the outbound links it discovered.
type IndexedDoc struct {
	Page           Page
	TitlePositions map[string][]int
	BodyPositions  map[string][]int
	Links          []string
}

// Store wraps a sqlite database holding the whole index.
type Store struct {
	db *sql.DB
}

// NewStore opens (creating if needed) the index database at path.
func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=30000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// UpsertPage inserts a new page and assigns its id. Returns
// ErrDuplicateURL if the URL is already present.
func (s *Store) UpsertPage(page *Page) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	id, err := insertPage(tx, page)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	page.ID = id
	return id, nil
}

func insertPage(tx *sql.Tx, page *Page) (int64, error) {
	var existing int64
	err := tx.QueryRow("SELECT id FROM pages WHERE url = ?", page.URL).Scan(&existing)
	if err == nil {
		return 0, ErrDuplicateURL
	}
	if err != sql.ErrNoRows {
		return 0, err
	}

	keywords, err := json.Marshal(page.Keywords)
	if err != nil {
		return 0, err
	}
	if page.Keywords == nil {
		keywords = []byte("[]")
	}

	res, err := tx.Exec(`
		INSERT INTO pages (url, title, last_modified, size, keywords, parent_id, max_tf_title, max_tf_body)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		page.URL, page.Title, page.LastModified, page.Size,
		string(keywords), page.ParentID, page.MaxTFTitle, page.MaxTFBody,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// AddPostings creates one posting per stem for the given page and
// field, incrementing the field's document frequency the first time a
// stem is recorded for that page. Calling it twice for the same
// (stem, page, field) is a no-op, so frequencies are never double
// counted.
func (s *Store) AddPostings(field Field, pageID int64, positions map[string][]int) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := addPostings(tx, field, pageID, positions); err != nil {
		return err
	}
	return tx.Commit()
}

func addPostings(tx *sql.Tx, field Field, pageID int64, positions map[string][]int) error {
	insertStmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO postings (field, stem, page_id, positions, frequency)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer insertStmt.Close()

	dfColumn := "df_body"
	if field == FieldTitle {
		dfColumn = "df_title"
	}
	dfStmt, err := tx.Prepare(fmt.Sprintf(`
		INSERT INTO document_stats (stem, %[1]s) VALUES (?, 1)
		ON CONFLICT(stem) DO UPDATE SET %[1]s = %[1]s + 1`, dfColumn))
	if err != nil {
		return err
	}
	defer dfStmt.Close()

	for stem, pos := range positions {
		encoded, err := json.Marshal(pos)
		if err != nil {
			return err
		}
		res, err := insertStmt.Exec(string(field), stem, pageID, string(encoded), len(pos))
		if err != nil {
			return fmt.Errorf("failed to insert posting for %q: %w", stem, err)
		}
		inserted, err := res.RowsAffected()
		if err != nil {
			return err
		}
		// df counts distinct pages, so bump it only when the
		// posting row was actually created.
		if inserted == 1 {
			if _, err := dfStmt.Exec(stem); err != nil {
				return fmt.Errorf("failed to update df for %q: %w", stem, err)
			}
		}
	}
	return nil
}

// UpdateMaxTF raises the page's max term frequency for the field to
// value if value is larger. Never lowers it.
func (s *Store) UpdateMaxTF(pageID int64, field Field, value int) error {
	column := "max_tf_body"
	if field == FieldTitle {
		column = "max_tf_title"
	}
	_, err := s.db.Exec(fmt.Sprintf(
		"UPDATE pages SET %[1]s = MAX(%[1]s, ?) WHERE id = ?", column),
		value, pageID,
	)
	return err
}

// IndexPage commits one URL's whole unit of work in a single
// transaction: the page row, both posting sets, both max_tf values,
// the document frequency deltas and the discovered links. Either all
// of it lands or none of it does.
func (s *Store) IndexPage(doc *IndexedDoc) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	pageID, err := insertPage(tx, &doc.Page)
	if err != nil {
		return 0, err
	}

	if err := addPostings(tx, FieldTitle, pageID, doc.TitlePositions); err != nil {
		return 0, err
	}
	if err := addPostings(tx, FieldBody, pageID, doc.BodyPositions); err != nil {
		return 0, err
	}

	maxTitle := maxFrequency(doc.TitlePositions)
	maxBody := maxFrequency(doc.BodyPositions)
	if _, err := tx.Exec(
		"UPDATE pages SET max_tf_title = MAX(max_tf_title, ?), max_tf_body = MAX(max_tf_body, ?) WHERE id = ?",
		maxTitle, maxBody, pageID,
	); err != nil {
		return 0, err
	}

	if len(doc.Links) > 0 {
		linkStmt, err := tx.Prepare("INSERT OR IGNORE INTO links (parent_id, child_url) VALUES (?, ?)")
		if err != nil {
			return 0, err
		}
		defer linkStmt.Close()
		for _, child := range doc.Links {
			if _, err := linkStmt.Exec(pageID, child); err != nil {
				return 0, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	doc.Page.ID = pageID
	return pageID, nil
}

func maxFrequency(positions map[string][]int) int {
	max := 0
	for _, pos := range positions {
		if len(pos) > max {
			max = len(pos)
		}
	}
	return max
}

// ClearAll deletes every page, posting, stat and link atomically.
// Callers must ensure no crawl is running.
func (s *Store) ClearAll() error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"links", "postings", "document_stats", "pages"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// PostingsForStem returns every posting of the stem in the field.
func (s *Store) PostingsForStem(field Field, stem string) ([]Posting, error) {
	rows, err := s.db.Query(
		"SELECT stem, page_id, positions, frequency FROM postings WHERE field = ? AND stem = ?",
		string(field), stem,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPostings(rows)
}

// PagePostings returns the page's postings for the given stems as a
// stem → positions map. Stems without a posting are simply absent.
func (s *Store) PagePostings(field Field, pageID int64, stems []string) (map[string][]int, error) {
	if len(stems) == 0 {
		return map[string][]int{}, nil
	}

	placeholders := strings.Repeat("?,", len(stems))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, 0, len(stems)+2)
	args = append(args, string(field), pageID)
	for _, stem := range stems {
		args = append(args, stem)
	}

	rows, err := s.db.Query(fmt.Sprintf(
		"SELECT stem, page_id, positions, frequency FROM postings WHERE field = ? AND page_id = ? AND stem IN (%s)",
		placeholders), args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	postings, err := scanPostings(rows)
	if err != nil {
		return nil, err
	}
	result := make(map[string][]int, len(postings))
	for _, p := range postings {
		result[p.Stem] = p.Positions
	}
	return result, nil
}

func scanPostings(rows *sql.Rows) ([]Posting, error) {
	var postings []Posting
	for rows.Next() {
		var p Posting
		var encoded string
		if err := rows.Scan(&p.Stem, &p.PageID, &encoded, &p.Frequency); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(encoded), &p.Positions); err != nil {
			return nil, err
		}
		postings = append(postings, p)
	}
	return postings, rows.Err()
}

// PageByID fetches one page. Returns ErrNotFound if absent.
func (s *Store) PageByID(id int64) (*Page, error) {
	return s.pageBy("id = ?", id)
}

// PageByURL fetches one page by its URL. Returns ErrNotFound if absent.
func (s *Store) PageByURL(url string) (*Page, error) {
	return s.pageBy("url = ?", url)
}

func (s *Store) pageBy(where string, arg any) (*Page, error) {
	row := s.db.QueryRow(
		"SELECT id, url, title, last_modified, size, keywords, parent_id, max_tf_title, max_tf_body FROM pages WHERE "+where,
		arg,
	)
	page, err := scanPage(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return page, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPage(row rowScanner) (*Page, error) {
	var page Page
	var keywords string
	var parentID sql.NullInt64
	err := row.Scan(&page.ID, &page.URL, &page.Title, &page.LastModified,
		&page.Size, &keywords, &parentID, &page.MaxTFTitle, &page.MaxTFBody)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(keywords), &page.Keywords); err != nil {
		return nil, err
	}
	if parentID.Valid {
		page.ParentID = &parentID.Int64
	}
	return &page, nil
}

// StatsForStem returns the stem's document frequencies, zero-valued
// if the stem has never been indexed.
func (s *Store) StatsForStem(stem string) (Stats, error) {
	stats := Stats{Stem: stem}
	err := s.db.QueryRow(
		"SELECT df_title, df_body FROM document_stats WHERE stem = ?", stem,
	).Scan(&stats.DFTitle, &stats.DFBody)
	if err == sql.ErrNoRows {
		return stats, nil
	}
	return stats, err
}

// PageCount returns the total number of indexed pages.
func (s *Store) PageCount() (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM pages").Scan(&count)
	return count, err
}

// AllURLs returns every indexed URL. The crawl engine preloads its
// claimed set from this so a second run skips finished work.
func (s *Store) AllURLs() ([]string, error) {
	rows, err := s.db.Query("SELECT url FROM pages")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, err
		}
		urls = append(urls, url)
	}
	return urls, rows.Err()
}

// ChildrenOf returns the URLs this page discovered, sorted for
// deterministic reporting.
func (s *Store) ChildrenOf(pageID int64) ([]string, error) {
	rows, err := s.db.Query(
		"SELECT child_url FROM links WHERE parent_id = ? ORDER BY child_url", pageID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, err
		}
		urls = append(urls, url)
	}
	return urls, rows.Err()
}

// FirstPages returns up to limit pages in insertion order.
func (s *Store) FirstPages(limit int) ([]*Page, error) {
	rows, err := s.db.Query(
		"SELECT id, url, title, last_modified, size, keywords, parent_id, max_tf_title, max_tf_body FROM pages ORDER BY id LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pages []*Page
	for rows.Next() {
		page, err := scanPage(rows)
		if err != nil {
			return nil, err
		}
		pages = append(pages, page)
	}
	return pages, rows.Err()
}
