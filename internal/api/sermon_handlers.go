package api

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kiraleos/sermon-assistant/internal/export"
	"github.com/kiraleos/sermon-assistant/internal/sermon"
)

func (h *APIHandler) GetSermonHandler(w http.ResponseWriter, r *http.Request) {
	s, err := h.Sermons.Load()
	if err != nil {
		h.fail(w, r, "failed to load sermon", err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// PutSermonHandler replaces the whole sermon document.
func (h *APIHandler) PutSermonHandler(w http.ResponseWriter, r *http.Request) {
	var req sermon.Sermon
	if !decodeBody(w, r, &req) {
		return
	}
	s, err := h.Sermons.Update(func(s *sermon.Sermon) error {
		*s = req
		return nil
	})
	if err != nil {
		h.fail(w, r, "failed to save sermon", err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *APIHandler) ClearSermonHandler(w http.ResponseWriter, r *http.Request) {
	s, err := h.Sermons.Clear()
	if err != nil {
		h.fail(w, r, "failed to clear sermon", err)
		return
	}
	slog.InfoContext(r.Context(), "sermon cleared", "subject", subjectFrom(r.Context()))
	writeJSON(w, http.StatusOK, s)
}

func (h *APIHandler) ListNotesHandler(w http.ResponseWriter, r *http.Request) {
	s, err := h.Sermons.Load()
	if err != nil {
		h.fail(w, r, "failed to load sermon", err)
		return
	}
	writeJSON(w, http.StatusOK, s.SortedNotes(sermon.ParseSortMode(r.URL.Query().Get("sort"))))
}

type NoteRequest struct {
	Ref  string `json:"ref"`
	Text string `json:"text"`
	Note string `json:"note"`
}

func (h *APIHandler) AddNoteHandler(w http.ResponseWriter, r *http.Request) {
	var req NoteRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var added sermon.Note
	_, err := h.Sermons.Update(func(s *sermon.Sermon) error {
		n, err := s.AddNote(req.Ref, req.Text, req.Note)
		added = n
		return err
	})
	if err != nil {
		h.fail(w, r, "failed to add note", err)
		return
	}
	writeJSON(w, http.StatusCreated, added)
}

// CopyReferenceRequest names a verse or a whole chapter to fetch into the notes.
type CopyReferenceRequest struct {
	Reference string `json:"reference"`
}

func (h *APIHandler) CopyReferenceHandler(w http.ResponseWriter, r *http.Request) {
	var req CopyReferenceRequest
	if !decodeBody(w, r, &req) {
		return
	}
	notes, err := h.Notes.CopyReference(r.Context(), h.translation(r), req.Reference)
	if err != nil {
		h.fail(w, r, "failed to copy reference", err)
		return
	}
	writeJSON(w, http.StatusCreated, notes)
}

func (h *APIHandler) EditNoteHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "noteID")
	var req NoteRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var edited sermon.Note
	_, err := h.Sermons.Update(func(s *sermon.Sermon) error {
		n, err := s.EditNote(id, req.Ref, req.Text, req.Note)
		edited = n
		return err
	})
	if err != nil {
		h.fail(w, r, "failed to edit note", err)
		return
	}
	writeJSON(w, http.StatusOK, edited)
}

func (h *APIHandler) DeleteNoteHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "noteID")
	_, err := h.Sermons.Update(func(s *sermon.Sermon) error {
		return s.DeleteNote(id)
	})
	if err != nil {
		h.fail(w, r, "failed to delete note", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AppendContentRequest copies one note (NoteID set) or every note (NoteID
// empty) to the end of the sermon body.
type AppendContentRequest struct {
	NoteID string `json:"note_id,omitempty"`
}

func (h *APIHandler) AppendContentHandler(w http.ResponseWriter, r *http.Request) {
	var req AppendContentRequest
	if r.ContentLength != 0 {
		if !decodeBody(w, r, &req) {
			return
		}
	}
	s, err := h.Sermons.Update(func(s *sermon.Sermon) error {
		if req.NoteID == "" {
			return s.AppendAllToContent()
		}
		return s.AppendToContent(req.NoteID)
	})
	if err != nil {
		h.fail(w, r, "failed to copy notes to content", err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *APIHandler) PreviewHandler(w http.ResponseWriter, r *http.Request) {
	s, err := h.Sermons.Load()
	if err != nil {
		h.fail(w, r, "failed to load sermon", err)
		return
	}
	var buf bytes.Buffer
	if err := export.WritePreview(&buf, s); err != nil {
		h.fail(w, r, "failed to render preview", err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		slog.WarnContext(r.Context(), "failed to send preview", "error", err)
	}
}

type SuggestionsRequest struct {
	Notes string `json:"notes"`
	// Add stores the suggestions as a "Suggestions" note.
	Add bool `json:"add"`
}

type suggestionsResponse struct {
	Suggestions string       `json:"suggestions"`
	Note        *sermon.Note `json:"note,omitempty"`
}

func (h *APIHandler) SuggestionsHandler(w http.ResponseWriter, r *http.Request) {
	var req SuggestionsRequest
	if !decodeBody(w, r, &req) {
		return
	}

	text, err := h.Notes.Suggest(r.Context(), req.Notes)
	if err != nil {
		h.fail(w, r, "suggestion request failed", err)
		return
	}
	resp := suggestionsResponse{Suggestions: text}
	if req.Add {
		n, err := h.Notes.AddSuggestions(text)
		if err != nil {
			h.fail(w, r, "failed to add suggestions", err)
			return
		}
		resp.Note = &n
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *APIHandler) ExportHandler(w http.ResponseWriter, r *http.Request) {
	s, err := h.Sermons.Load()
	if err != nil {
		h.fail(w, r, "failed to load sermon", err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteDocx(&buf, s); err != nil {
		h.fail(w, r, "failed to export sermon", err)
		return
	}

	filename := export.DefaultFilename(s, time.Now())
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.wordprocessingml.document")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		slog.WarnContext(r.Context(), "failed to send export", "error", err)
	}
}
