// Package sermon holds the sermon being prepared and persists it as a JSON
// document on disk.
package sermon

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	DefaultTranslation = "WEB"
	// TimestampLayout is the layout of Note.Timestamp.
	TimestampLayout = "2006-01-02 15:04:05"
	documentKey     = "sermon"
)

type Contact struct {
	Name         string `json:"name,omitempty"`
	Church       string `json:"church,omitempty"`
	Organization string `json:"organization,omitempty"`
	Email        string `json:"email,omitempty"`
	Phone        string `json:"phone,omitempty"`
	Website      string `json:"website,omitempty"`
	Additional   string `json:"additional,omitempty"`
}

// Lines returns "Label: value" for each non-empty field, in display order.
func (c Contact) Lines() []string {
	fields := []struct{ label, value string }{
		{"Name", c.Name},
		{"Church", c.Church},
		{"Organization", c.Organization},
		{"Email", c.Email},
		{"Phone", c.Phone},
		{"Website", c.Website},
		{"Additional Info", c.Additional},
	}
	var lines []string
	for _, f := range fields {
		if f.value != "" {
			lines = append(lines, f.label+": "+f.value)
		}
	}
	return lines
}

type Settings struct {
	DefaultTranslation string `json:"default_translation"`
}

type Sermon struct {
	Title       string   `json:"title"`
	Intro       string   `json:"intro"`
	Content     string   `json:"content"`
	VersesNotes []Note   `json:"verses_notes"`
	Header      Contact  `json:"header"`
	Footer      Contact  `json:"footer"`
	Settings    Settings `json:"settings"`
}

// Default returns an empty sermon with the default translation selected.
func Default() *Sermon {
	return &Sermon{
		VersesNotes: []Note{},
		Settings:    Settings{DefaultTranslation: DefaultTranslation},
	}
}

func (s *Sermon) normalize() {
	if s.VersesNotes == nil {
		s.VersesNotes = []Note{}
	}
	if s.Settings.DefaultTranslation == "" {
		s.Settings.DefaultTranslation = DefaultTranslation
	}
	for i := range s.VersesNotes {
		if s.VersesNotes[i].ID == "" {
			s.VersesNotes[i].ID = newNoteID()
		}
	}
}

// Store reads and writes a sermon document. The sermon lives under the
// "sermon" key of the file; other top-level keys are preserved on save.
type Store struct {
	Path string
	mu   sync.Mutex
}

func NewStore(path string) *Store {
	return &Store{Path: path}
}

// Load returns the stored sermon, or a default one when the file does not exist.
func (st *Store) Load() (*Sermon, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.load()
}

func (st *Store) load() (*Sermon, error) {
	doc, err := st.readDocument()
	if err != nil {
		return nil, err
	}
	raw, ok := doc[documentKey]
	if !ok {
		return Default(), nil
	}
	s := Default()
	if err := json.Unmarshal(raw, s); err != nil {
		return nil, fmt.Errorf("failed to decode sermon in %s: %w", st.Path, err)
	}
	s.normalize()
	return s, nil
}

// Save writes s to disk atomically.
func (st *Store) Save(s *Sermon) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.save(s)
}

func (st *Store) save(s *Sermon) error {
	s.normalize()
	doc, err := st.readDocument()
	if err != nil {
		return err
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode sermon: %w", err)
	}
	doc[documentKey] = raw

	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode sermon file: %w", err)
	}
	return writeFileAtomic(st.Path, data)
}

// Update loads the sermon, applies fn and saves the result. Nothing is written
// when fn fails.
func (st *Store) Update(fn func(*Sermon) error) (*Sermon, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, err := st.load()
	if err != nil {
		return nil, err
	}
	if err := fn(s); err != nil {
		return nil, err
	}
	if err := st.save(s); err != nil {
		return nil, err
	}
	return s, nil
}

// Clear deletes the sermon file and returns a fresh default sermon.
func (st *Store) Clear() (*Sermon, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if err := os.Remove(st.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to remove %s: %w", st.Path, err)
	}
	return Default(), nil
}

func (st *Store) readDocument() (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(st.Path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]json.RawMessage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", st.Path, err)
	}
	doc := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", st.Path, err)
	}
	return doc, nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".sermon-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

var now = time.Now
