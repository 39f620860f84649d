package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(apiHandler *APIHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)       // Basic request logging
	r.Use(middleware.Recoverer)    // Recover from panics
	r.Use(middleware.StripSlashes) // Ensure consistent path handling

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", apiHandler.HealthHandler)

		r.Group(func(r chi.Router) {
			r.Use(apiHandler.JWTAuthMiddleware)

			// Scripture
			r.Get("/reference", apiHandler.ParseReferenceHandler)
			r.Get("/bible/{translation}/{book}/{chapter}", apiHandler.ReadChapterHandler)
			r.Post("/bible/{translation}/{book}/{chapter}/notes", apiHandler.CopyChapterHandler)
			r.Get("/search", apiHandler.SearchHandler)
			r.Get("/search/history", apiHandler.SearchHistoryHandler)

			// API keys
			r.Get("/keys", apiHandler.ListKeysHandler)
			r.Put("/keys", apiHandler.ReplaceKeysHandler)
			r.Post("/keys/current", apiHandler.SwitchKeyHandler)

			// Conversations
			r.Post("/conversations", apiHandler.CreateConversationHandler)
			r.Get("/conversations", apiHandler.ListConversationsHandler)
			r.Get("/conversations/{conversationID}", apiHandler.GetConversationHandler)
			r.Patch("/conversations/{conversationID}", apiHandler.RenameConversationHandler)
			r.Delete("/conversations/{conversationID}", apiHandler.DeleteConversationHandler)
			r.Post("/conversations/{conversationID}/messages", apiHandler.PostMessageHandler)
			r.Post("/research", apiHandler.ResearchHandler)

			// Sermon document
			r.Get("/sermon", apiHandler.GetSermonHandler)
			r.Put("/sermon", apiHandler.PutSermonHandler)
			r.Delete("/sermon", apiHandler.ClearSermonHandler)
			r.Get("/sermon/notes", apiHandler.ListNotesHandler)
			r.Post("/sermon/notes", apiHandler.AddNoteHandler)
			r.Post("/sermon/notes/copy", apiHandler.CopyReferenceHandler)
			r.Put("/sermon/notes/{noteID}", apiHandler.EditNoteHandler)
			r.Delete("/sermon/notes/{noteID}", apiHandler.DeleteNoteHandler)
			r.Post("/sermon/suggestions", apiHandler.SuggestionsHandler)
			r.Post("/sermon/content/append", apiHandler.AppendContentHandler)
			r.Get("/sermon/preview", apiHandler.PreviewHandler)
			r.Get("/sermon/export", apiHandler.ExportHandler)
		})
	})

	return r
}
