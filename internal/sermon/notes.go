package sermon

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

const (
	// DefaultRef labels notes entered without a reference.
	DefaultRef     = "Note"
	SuggestionsRef = "Suggestions"
)

var (
	ErrEmptyNote    = errors.New("note text is empty")
	ErrNoteNotFound = errors.New("note not found")
	ErrNoNotes      = errors.New("no verses or notes to copy")
)

// Note is one entry of the "Verses and Notes" list: a verse, a free-form note
// or a block of suggestions.
type Note struct {
	ID        string `json:"id"`
	Ref       string `json:"ref"`
	Text      string `json:"text"`
	Note      string `json:"note"`
	Timestamp string `json:"timestamp,omitempty"`
}

type SortMode string

const (
	SortByRef  SortMode = "ref"
	SortByTime SortMode = "time"
)

// ParseSortMode accepts "ref" and "time"; anything else sorts by reference.
func ParseSortMode(s string) SortMode {
	if SortMode(strings.ToLower(s)) == SortByTime {
		return SortByTime
	}
	return SortByRef
}

func newNoteID() string {
	return uuid.NewString()
}

func normalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n")
}

// AddNote appends a note stamped with the current time.
func (s *Sermon) AddNote(ref, text, note string) (Note, error) {
	text = normalizeText(text)
	if strings.TrimSpace(text) == "" {
		return Note{}, ErrEmptyNote
	}
	ref = strings.TrimSpace(ref)
	if ref == "" {
		ref = DefaultRef
	}
	n := Note{
		ID:        newNoteID(),
		Ref:       ref,
		Text:      text,
		Note:      note,
		Timestamp: now().Format(TimestampLayout),
	}
	s.VersesNotes = append(s.VersesNotes, n)
	return n, nil
}

// EditNote replaces the reference, text and note of an entry. The creation
// timestamp is kept.
func (s *Sermon) EditNote(id, ref, text, note string) (Note, error) {
	i := s.noteIndex(id)
	if i < 0 {
		return Note{}, fmt.Errorf("%s: %w", id, ErrNoteNotFound)
	}
	text = normalizeText(text)
	if strings.TrimSpace(text) == "" {
		return Note{}, ErrEmptyNote
	}
	ref = strings.TrimSpace(ref)
	if ref == "" {
		ref = DefaultRef
	}

	n := &s.VersesNotes[i]
	n.Ref = ref
	n.Text = text
	n.Note = note
	if n.Timestamp == "" {
		n.Timestamp = now().Format(TimestampLayout)
	}
	return *n, nil
}

func (s *Sermon) DeleteNote(id string) error {
	i := s.noteIndex(id)
	if i < 0 {
		return fmt.Errorf("%s: %w", id, ErrNoteNotFound)
	}
	s.VersesNotes = append(s.VersesNotes[:i], s.VersesNotes[i+1:]...)
	return nil
}

// AppendToContent copies the text of one note to the end of the sermon body,
// separated by a blank line.
func (s *Sermon) AppendToContent(id string) error {
	i := s.noteIndex(id)
	if i < 0 {
		return fmt.Errorf("%s: %w", id, ErrNoteNotFound)
	}
	s.Content += "\n\n" + s.VersesNotes[i].Text
	return nil
}

// AppendAllToContent copies the text of every note, in stored order, to the
// end of the sermon body.
func (s *Sermon) AppendAllToContent() error {
	if len(s.VersesNotes) == 0 {
		return ErrNoNotes
	}
	texts := make([]string, len(s.VersesNotes))
	for i, n := range s.VersesNotes {
		texts[i] = n.Text
	}
	s.Content += "\n\n" + strings.Join(texts, "\n\n")
	return nil
}

func (s *Sermon) noteIndex(id string) int {
	for i, n := range s.VersesNotes {
		if n.ID == id {
			return i
		}
	}
	return -1
}

// SortedNotes returns a sorted copy of the notes. SortByRef orders by
// reference ignoring case; SortByTime puts the newest first and undated
// entries last.
func (s *Sermon) SortedNotes(mode SortMode) []Note {
	notes := make([]Note, len(s.VersesNotes))
	copy(notes, s.VersesNotes)

	if mode == SortByTime {
		sort.SliceStable(notes, func(i, j int) bool {
			a, b := notes[i].Timestamp, notes[j].Timestamp
			if a == "" || b == "" {
				return a != "" && b == ""
			}
			return a > b
		})
		return notes
	}
	sort.SliceStable(notes, func(i, j int) bool {
		return strings.ToLower(notes[i].Ref) < strings.ToLower(notes[j].Ref)
	})
	return notes
}
