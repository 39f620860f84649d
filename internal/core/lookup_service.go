package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kiraleos/sermon-assistant/internal/bible"
	"github.com/kiraleos/sermon-assistant/internal/bolls"
	"github.com/kiraleos/sermon-assistant/internal/store"
)

const (
	KindReference = "reference"
	KindKeyword   = "keyword"
)

var ErrEmptyQuery = errors.New("query is empty")

// LookupResult is either a single passage (Kind "reference") or a list of
// keyword matches (Kind "keyword").
type LookupResult struct {
	Query       string               `json:"query"`
	Translation string               `json:"translation"`
	Kind        string               `json:"kind"`
	Reference   *bible.Reference     `json:"reference,omitempty"`
	Label       string               `json:"label,omitempty"`
	Text        string               `json:"text,omitempty"`
	Matches     []bolls.SearchResult `json:"matches,omitempty"`
}

type LookupService struct {
	parser  *bible.Parser
	bible   *bolls.Client
	dbStore *store.SQLiteStore
}

func NewLookupService(parser *bible.Parser, client *bolls.Client, db *store.SQLiteStore) *LookupService {
	if parser == nil {
		parser = bible.NewParser(bible.DefaultSimilarityThreshold)
	}
	return &LookupService{parser: parser, bible: client, dbStore: db}
}

// Parse resolves input to a reference without contacting the Bible API.
func (s *LookupService) Parse(input string) (bible.Reference, error) {
	return s.parser.Parse(input)
}

// Search records input in the search history, then treats it as a scripture
// reference when it parses as one and as a keyword query otherwise.
func (s *LookupService) Search(ctx context.Context, translation, input string) (*LookupResult, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, ErrEmptyQuery
	}
	if err := s.dbStore.RecordSearch(input); err != nil {
		slog.Warn("failed to save search history", "query", input, "error", err)
	}

	res := &LookupResult{Query: input, Translation: translation}

	ref, err := s.parser.Parse(input)
	if err == nil {
		text, err := s.bible.Passage(ctx, translation, ref)
		if err != nil {
			return nil, fmt.Errorf("could not fetch %s: %w", ref, err)
		}
		res.Kind = KindReference
		res.Reference = &ref
		res.Label = ref.String()
		res.Text = text
		slog.Debug("reference lookup", "input", input, "reference", res.Label, "translation", translation)
		return res, nil
	}
	slog.Debug("input is not a reference, running keyword search", "input", input, "reason", err)

	matches, err := s.bible.Search(ctx, translation, input, bolls.DefaultSearchLimit)
	if err != nil {
		return nil, fmt.Errorf("keyword search failed: %w", err)
	}
	res.Kind = KindKeyword
	res.Matches = matches
	return res, nil
}

// Read returns a whole chapter.
func (s *LookupService) Read(ctx context.Context, translation string, book bible.BookID, chapter int) ([]bolls.Verse, error) {
	b, ok := bible.BookByID(book)
	if !ok {
		return nil, &bible.ParseError{Input: fmt.Sprint(book), Reason: "unknown book id"}
	}
	if chapter < 1 || chapter > b.Chapters {
		return nil, &bible.ParseError{Input: fmt.Sprintf("%s %d", b.Name, chapter), Reason: fmt.Sprintf("%s has %d chapters", b.Name, b.Chapters)}
	}
	return s.bible.Chapter(ctx, translation, book, chapter)
}

func (s *LookupService) History(limit int) ([]store.SearchEntry, error) {
	return s.dbStore.SearchHistory(limit)
}
