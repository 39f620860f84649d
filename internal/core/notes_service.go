package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kiraleos/sermon-assistant/internal/bible"
	"github.com/kiraleos/sermon-assistant/internal/bolls"
	"github.com/kiraleos/sermon-assistant/internal/sermon"
)

var ErrNoSuggestions = errors.New("no suggestions to add")

// NotesService connects the sermon's "Verses and Notes" list with the model
// and the Bible text lookup.
type NotesService struct {
	assistant *Assistant
	sermons   *sermon.Store
	lookup    *LookupService
}

func NewNotesService(assistant *Assistant, sermons *sermon.Store, lookup *LookupService) *NotesService {
	return &NotesService{assistant: assistant, sermons: sermons, lookup: lookup}
}

func suggestPrompt(notes string) string {
	return fmt.Sprintf("Based on these sermon notes: '%s', suggest relevant Bible verses with references and brief explanations.", notes)
}

// Suggest asks the model for verses that fit notes.
func (s *NotesService) Suggest(ctx context.Context, notes string) (string, error) {
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return "", ErrEmptyPrompt
	}
	return s.prompt(ctx, suggestPrompt(notes))
}

// Research sends a free-form question to the model.
func (s *NotesService) Research(ctx context.Context, query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", ErrEmptyPrompt
	}
	return s.prompt(ctx, query)
}

func (s *NotesService) prompt(ctx context.Context, prompt string) (string, error) {
	out, err := s.assistant.Prompt(ctx, nil, prompt)
	if err != nil {
		return "", err
	}
	if err := out.Err(); err != nil {
		return "", err
	}
	return out.Payload, nil
}

// AddSuggestions stores a block of suggestions as a single "Suggestions" note.
func (s *NotesService) AddSuggestions(suggestions string) (sermon.Note, error) {
	if strings.TrimSpace(suggestions) == "" {
		return sermon.Note{}, ErrNoSuggestions
	}
	return s.addNote(sermon.SuggestionsRef, suggestions)
}

// CopyVerse adds a verse, already fetched, to the notes under its reference.
func (s *NotesService) CopyVerse(ref, text string) (sermon.Note, error) {
	return s.addNote(ref, text)
}

// CopyReference looks up input as a scripture reference in translation and
// adds it to the notes: one note for a verse, one note per verse for a
// whole chapter.
func (s *NotesService) CopyReference(ctx context.Context, translation, input string) ([]sermon.Note, error) {
	ref, err := s.lookup.Parse(input)
	if err != nil {
		return nil, err
	}
	if !ref.HasVerse() {
		return s.CopyChapter(ctx, translation, ref.Book, ref.Chapter)
	}
	text, err := s.lookup.bible.Passage(ctx, translation, ref)
	if err != nil {
		return nil, fmt.Errorf("could not fetch %s: %w", ref, err)
	}
	n, err := s.addNote(ref.String(), text)
	if err != nil {
		return nil, err
	}
	return []sermon.Note{n}, nil
}

// CopyChapter adds every verse of a chapter as its own note, referenced
// "Book chapter:verse", in a single save.
func (s *NotesService) CopyChapter(ctx context.Context, translation string, book bible.BookID, chapter int) ([]sermon.Note, error) {
	verses, err := s.lookup.Read(ctx, translation, book, chapter)
	if err != nil {
		return nil, err
	}
	if len(verses) == 0 {
		return nil, fmt.Errorf("%s %d: %w", book.Name(), chapter, bolls.ErrNotFound)
	}

	added := make([]sermon.Note, 0, len(verses))
	_, err = s.sermons.Update(func(doc *sermon.Sermon) error {
		for _, v := range verses {
			if strings.TrimSpace(v.Text) == "" {
				continue
			}
			ref := bible.Reference{Book: book, Chapter: chapter, Verse: v.Verse}
			n, err := doc.AddNote(ref.String(), v.Text, "")
			if err != nil {
				return fmt.Errorf("%s: %w", ref, err)
			}
			added = append(added, n)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return added, nil
}

func (s *NotesService) addNote(ref, text string) (sermon.Note, error) {
	var added sermon.Note
	_, err := s.sermons.Update(func(doc *sermon.Sermon) error {
		n, err := doc.AddNote(ref, text, "")
		added = n
		return err
	})
	return added, err
}
