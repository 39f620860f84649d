package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kiraleos/sermon-assistant/internal/auth"
	"github.com/kiraleos/sermon-assistant/internal/bible"
	"github.com/kiraleos/sermon-assistant/internal/bolls"
	"github.com/kiraleos/sermon-assistant/internal/core"
	"github.com/kiraleos/sermon-assistant/internal/rotation"
	"github.com/kiraleos/sermon-assistant/internal/sermon"
	"github.com/kiraleos/sermon-assistant/internal/store"
)

type ctxKey string

const subjectKey ctxKey = "subject"

// Deps are the services the HTTP handlers delegate to.
type Deps struct {
	Chat    *core.ChatService
	Lookup  *core.LookupService
	Notes   *core.NotesService
	Sermons *sermon.Store
	Keys    *store.SQLiteStore
	// JWTSecret enables bearer-token auth on every route but /api/health.
	JWTSecret string
	// Translation is used when neither the request nor the sermon names one.
	Translation string
}

type APIHandler struct {
	Deps
}

func NewAPIHandler(deps Deps) *APIHandler {
	if deps.Translation == "" {
		deps.Translation = sermon.DefaultTranslation
	}
	return &APIHandler{Deps: deps}
}

func (h *APIHandler) JWTAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.JWTSecret == "" {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "Authorization header is required"})
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		subject, err := auth.ValidateJWT(h.JWTSecret, tokenString)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "Invalid token"})
			return
		}

		ctx := context.WithValue(r.Context(), subjectKey, subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// subjectFrom returns the token subject set by JWTAuthMiddleware, or "" when
// auth is disabled.
func subjectFrom(ctx context.Context) string {
	subject, _ := ctx.Value(subjectKey).(string)
	return subject
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to write response", "error", err)
	}
}

// statusFor maps service errors to HTTP status codes and an error kind.
func statusFor(err error) (int, string) {
	var statusErr *bolls.StatusError
	switch {
	case errors.Is(err, bible.ErrParse):
		return http.StatusBadRequest, "parse_error"
	case errors.Is(err, store.ErrNotFound), errors.Is(err, bolls.ErrNotFound), errors.Is(err, sermon.ErrNoteNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, store.ErrDuplicateKey):
		return http.StatusConflict, "duplicate"
	case errors.Is(err, core.ErrEmptyPrompt), errors.Is(err, core.ErrEmptyQuery), errors.Is(err, core.ErrEmptyLabel),
		errors.Is(err, core.ErrNoSuggestions), errors.Is(err, core.ErrKeyIndex),
		errors.Is(err, sermon.ErrEmptyNote), errors.Is(err, sermon.ErrNoNotes), errors.Is(err, store.ErrEmptyKey):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, rotation.ErrNoCredentials):
		return http.StatusPreconditionFailed, rotation.NoCredentials.String()
	case errors.Is(err, rotation.ErrKeysExhausted), errors.Is(err, rotation.ErrQuotaExceeded):
		return http.StatusTooManyRequests, rotation.KeysExhausted.String()
	case errors.Is(err, rotation.ErrAPI):
		return http.StatusBadGateway, rotation.OtherAPIError.String()
	case errors.As(err, &statusErr):
		return http.StatusBadGateway, "bible_api_error"
	default:
		return http.StatusInternalServerError, rotation.UnexpectedError.String()
	}
}

func (h *APIHandler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	status, kind := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), msg, "path", r.URL.Path, "subject", subjectFrom(r.Context()), "error", err)
	} else {
		slog.DebugContext(r.Context(), msg, "path", r.URL.Path, "subject", subjectFrom(r.Context()), "status", status, "error", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Kind: kind})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body: " + err.Error()})
		return false
	}
	return true
}

// translation picks ?translation=, then the sermon's default, then the server default.
func (h *APIHandler) translation(r *http.Request) string {
	if t := strings.TrimSpace(r.URL.Query().Get("translation")); t != "" {
		return strings.ToUpper(t)
	}
	if s, err := h.Sermons.Load(); err == nil && s.Settings.DefaultTranslation != "" {
		return s.Settings.DefaultTranslation
	}
	return h.Translation
}

func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type referenceResponse struct {
	Reference bible.Reference `json:"reference"`
	Label     string          `json:"label"`
	BookName  string          `json:"book_name"`
}

func (h *APIHandler) ParseReferenceHandler(w http.ResponseWriter, r *http.Request) {
	ref, err := h.Lookup.Parse(r.URL.Query().Get("q"))
	if err != nil {
		h.fail(w, r, "reference parse failed", err)
		return
	}
	writeJSON(w, http.StatusOK, referenceResponse{Reference: ref, Label: ref.String(), BookName: ref.Book.Name()})
}

type chapterResponse struct {
	Translation string        `json:"translation"`
	Book        string        `json:"book"`
	Chapter     int           `json:"chapter"`
	Verses      []bolls.Verse `json:"verses"`
}

// chapterParams reads {translation}, {book} and {chapter} from the route.
func chapterParams(r *http.Request) (string, bible.BookID, int, error) {
	translation := strings.ToUpper(chi.URLParam(r, "translation"))
	bookParam := chi.URLParam(r, "book")

	book, ok := bookFromParam(bookParam)
	if !ok {
		return "", 0, 0, &bible.ParseError{Input: bookParam, Reason: "unknown book"}
	}
	chapter, err := strconv.Atoi(chi.URLParam(r, "chapter"))
	if err != nil {
		return "", 0, 0, &bible.ParseError{Input: chi.URLParam(r, "chapter"), Reason: "chapter is not a number"}
	}
	return translation, book, chapter, nil
}

func (h *APIHandler) ReadChapterHandler(w http.ResponseWriter, r *http.Request) {
	translation, book, chapter, err := chapterParams(r)
	if err != nil {
		h.fail(w, r, "bad chapter request", err)
		return
	}

	verses, err := h.Lookup.Read(r.Context(), translation, book, chapter)
	if err != nil {
		h.fail(w, r, "chapter lookup failed", err)
		return
	}
	writeJSON(w, http.StatusOK, chapterResponse{Translation: translation, Book: book.Name(), Chapter: chapter, Verses: verses})
}

// CopyChapterHandler adds every verse of the chapter to the sermon notes.
func (h *APIHandler) CopyChapterHandler(w http.ResponseWriter, r *http.Request) {
	translation, book, chapter, err := chapterParams(r)
	if err != nil {
		h.fail(w, r, "bad chapter request", err)
		return
	}

	notes, err := h.Notes.CopyChapter(r.Context(), translation, book, chapter)
	if err != nil {
		h.fail(w, r, "failed to copy chapter", err)
		return
	}
	writeJSON(w, http.StatusCreated, notes)
}

// bookFromParam accepts a numeric book id or any book alias.
func bookFromParam(param string) (bible.BookID, bool) {
	if n, err := strconv.Atoi(param); err == nil {
		id := bible.BookID(n)
		return id, id.Valid()
	}
	return bible.LookupAlias(strings.ReplaceAll(param, "-", " "))
}

func (h *APIHandler) SearchHandler(w http.ResponseWriter, r *http.Request) {
	res, err := h.Lookup.Search(r.Context(), h.translation(r), r.URL.Query().Get("q"))
	if err != nil {
		h.fail(w, r, "search failed", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *APIHandler) SearchHistoryHandler(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.Lookup.History(limit)
	if err != nil {
		h.fail(w, r, "failed to load search history", err)
		return
	}
	if entries == nil {
		entries = []store.SearchEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

type keysResponse struct {
	Keys    []string `json:"keys"` // masked
	Current int      `json:"current"`
}

func (h *APIHandler) maskedKeys() (keysResponse, error) {
	keys, err := h.Keys.ListAPIKeys()
	if err != nil {
		return keysResponse{}, err
	}
	masked := make([]string, len(keys))
	for i, k := range keys {
		masked[i] = rotation.Credential(k).Masked()
	}
	return keysResponse{Keys: masked, Current: h.Chat.CurrentKey()}, nil
}

func (h *APIHandler) ListKeysHandler(w http.ResponseWriter, r *http.Request) {
	resp, err := h.maskedKeys()
	if err != nil {
		h.fail(w, r, "failed to list api keys", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type ReplaceKeysRequest struct {
	Keys []string `json:"keys"`
}

func (h *APIHandler) ReplaceKeysHandler(w http.ResponseWriter, r *http.Request) {
	var req ReplaceKeysRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.Keys.ReplaceAPIKeys(req.Keys); err != nil {
		h.fail(w, r, "failed to save api keys", err)
		return
	}
	slog.InfoContext(r.Context(), "api keys replaced", "count", len(req.Keys), "subject", subjectFrom(r.Context()))
	h.ListKeysHandler(w, r)
}

type SwitchKeyRequest struct {
	Index int `json:"index"`
}

func (h *APIHandler) SwitchKeyHandler(w http.ResponseWriter, r *http.Request) {
	var req SwitchKeyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.Chat.SwitchKey(req.Index); err != nil {
		h.fail(w, r, "failed to switch api key", err)
		return
	}
	h.ListKeysHandler(w, r)
}
