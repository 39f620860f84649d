package core

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kiraleos/sermon-assistant/internal/bible"
	"github.com/kiraleos/sermon-assistant/internal/bolls"
	"github.com/kiraleos/sermon-assistant/internal/rotation"
	"github.com/kiraleos/sermon-assistant/internal/sermon"
	"github.com/kiraleos/sermon-assistant/internal/store"
)

func TestAutoLabel(t *testing.T) {
	day := time.Date(2025, 5, 4, 12, 0, 0, 0, time.UTC)
	if got := AutoLabel("Outline for Psalm 23", day); got != "2025-05-04 - Outline for Psalm 23..." {
		t.Errorf("short label = %q", got)
	}
	long := strings.Repeat("ab", 40)
	got := AutoLabel(long, day)
	if got != "2025-05-04 - "+long[:50]+"..." {
		t.Errorf("long label = %q", got)
	}
}

func TestChatServiceAsk(t *testing.T) {
	db := newTestDB(t, "key-one")
	model := &fakeModel{}
	chat := NewChatService(db, NewAssistant(model, db))
	chat.now = func() time.Time { return time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	first := "Themes in the prodigal son"
	conv, turns, err := chat.CreateConversation(ctx, "", &first)
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}
	if len(turns) != 2 || turns[0].Role != store.RoleUser || turns[1].Content != "reply to "+first {
		t.Fatalf("turns = %+v", turns)
	}
	if conv.Label != "2025-01-05 - Themes in the prodigal son..." {
		t.Errorf("label = %q", conv.Label)
	}

	reply, err := chat.Ask(ctx, conv.ID, "Give me three verses")
	if err != nil {
		t.Fatal(err)
	}
	if reply.Role != store.RoleModel {
		t.Errorf("reply role = %s", reply.Role)
	}
	if h := model.histories[len(model.histories)-1]; len(h) != 2 {
		t.Errorf("history sent with second prompt has %d turns", len(h))
	}

	if _, err := chat.Ask(ctx, "missing", "hi"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("missing conversation err = %v", err)
	}
	if _, err := chat.Ask(ctx, conv.ID, "   "); !errors.Is(err, ErrEmptyPrompt) {
		t.Errorf("empty prompt err = %v", err)
	}
}

func TestChatServiceAskFailureStoresNothing(t *testing.T) {
	db := newTestDB(t, "only-key")
	model := &fakeModel{errs: map[rotation.Credential]error{"only-key": quotaErr()}}
	chat := NewChatService(db, NewAssistant(model, db))

	conv, _, _ := chat.CreateConversation(context.Background(), "Easter", nil)
	_, err := chat.Ask(context.Background(), conv.ID, "hello")
	if !errors.Is(err, rotation.ErrKeysExhausted) {
		t.Fatalf("err = %v", err)
	}
	_, turns, _ := chat.GetConversation(conv.ID)
	if len(turns) != 0 {
		t.Errorf("turns stored after failure: %+v", turns)
	}
}

func TestChatServiceKeepsLabelAndTrims(t *testing.T) {
	db := newTestDB(t, "k")
	chat := NewChatService(db, NewAssistant(&fakeModel{}, db))
	conv, _, _ := chat.CreateConversation(context.Background(), "My label", nil)

	for i := 0; i < store.MaxTurns/2+3; i++ {
		if _, err := chat.Ask(context.Background(), conv.ID, "question"); err != nil {
			t.Fatal(err)
		}
	}
	got, turns, _ := chat.GetConversation(conv.ID)
	if got.Label != "My label" {
		t.Errorf("label overwritten: %q", got.Label)
	}
	if len(turns) != store.MaxTurns {
		t.Errorf("turns = %d, want %d", len(turns), store.MaxTurns)
	}
	if turns[0].Role != store.RoleUser {
		t.Errorf("trimmed history starts with %s", turns[0].Role)
	}

	if err := chat.RenameConversation(conv.ID, " "); !errors.Is(err, ErrEmptyLabel) {
		t.Errorf("rename err = %v", err)
	}
	if err := chat.DeleteConversation(conv.ID); err != nil {
		t.Fatal(err)
	}
	if c, _, _ := chat.GetConversation(conv.ID); c != nil {
		t.Error("conversation survived delete")
	}
}

func newBollsServer(t *testing.T) *bolls.Client {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/get-text/WEB/43/3/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"pk": 1, "verse": 16, "text": "For God so loved the world"}]`))
	})
	mux.HandleFunc("/get-text/WEB/19/117/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"pk": 3, "verse": 1, "text": "Praise Yahweh, all you nations!"}, {"pk": 4, "verse": 2, "text": "For his loving kindness is great toward us."}]`))
	})
	mux.HandleFunc("/v2/find/WEB", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"exact_matches": 1, "total": 1, "results": [{"pk": 2, "translation": "WEB", "book": 19, "chapter": 23, "verse": 1, "text": "Yahweh is my shepherd"}]}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return bolls.NewClient(srv.URL, nil)
}

func TestLookupSearch(t *testing.T) {
	db := newTestDB(t)
	lookup := NewLookupService(nil, newBollsServer(t), db)
	ctx := context.Background()

	res, err := lookup.Search(ctx, "WEB", "jhn 3 16")
	if err != nil {
		t.Fatalf("reference search: %v", err)
	}
	if res.Kind != KindReference || res.Label != "John 3:16" || res.Text != "For God so loved the world" {
		t.Errorf("reference result = %+v", res)
	}

	res, err = lookup.Search(ctx, "WEB", "my shepherd")
	if err != nil {
		t.Fatalf("keyword search: %v", err)
	}
	if res.Kind != KindKeyword || len(res.Matches) != 1 || res.Matches[0].Reference() != "Psalms 23:1" {
		t.Errorf("keyword result = %+v", res)
	}

	if _, err := lookup.Search(ctx, "WEB", "John 3:40"); !errors.Is(err, bolls.ErrNotFound) {
		t.Errorf("missing verse err = %v", err)
	}

	history, _ := lookup.History(0)
	if len(history) != 3 || history[0].Query != "John 3:40" {
		t.Errorf("history = %+v", history)
	}

	if _, err := lookup.Read(ctx, "WEB", 43, 22); !errors.Is(err, bible.ErrParse) {
		t.Errorf("out of range chapter err = %v", err)
	}
}

func TestNotesService(t *testing.T) {
	db := newTestDB(t, "k")
	model := &fakeModel{}
	assistant := NewAssistant(model, db)
	sermons := sermon.NewStore(filepath.Join(t.TempDir(), "sermon_data.json"))
	notes := NewNotesService(assistant, sermons, NewLookupService(nil, newBollsServer(t), db))
	ctx := context.Background()

	suggestions, err := notes.Suggest(ctx, "grace and forgiveness")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(suggestions, "suggest relevant Bible verses") || !strings.Contains(suggestions, "grace and forgiveness") {
		t.Errorf("suggestions = %q", suggestions)
	}

	if _, err := notes.AddSuggestions(suggestions); err != nil {
		t.Fatal(err)
	}
	if _, err := notes.AddSuggestions(" "); !errors.Is(err, ErrNoSuggestions) {
		t.Errorf("empty suggestions err = %v", err)
	}
	if copied, err := notes.CopyReference(ctx, "WEB", "John 3:16"); err != nil || len(copied) != 1 {
		t.Fatalf("CopyReference = %+v, %v", copied, err)
	}
	if _, err := notes.CopyReference(ctx, "WEB", "nothing here"); !errors.Is(err, bible.ErrParse) {
		t.Errorf("bad reference err = %v", err)
	}

	doc, _ := sermons.Load()
	if len(doc.VersesNotes) != 2 {
		t.Fatalf("notes = %+v", doc.VersesNotes)
	}
	if doc.VersesNotes[0].Ref != sermon.SuggestionsRef || doc.VersesNotes[1].Ref != "John 3:16" {
		t.Errorf("refs = %q, %q", doc.VersesNotes[0].Ref, doc.VersesNotes[1].Ref)
	}
}

func TestCopyChapterAddsOneNotePerVerse(t *testing.T) {
	db := newTestDB(t)
	sermons := sermon.NewStore(filepath.Join(t.TempDir(), "sermon_data.json"))
	notes := NewNotesService(NewAssistant(&fakeModel{}, db), sermons, NewLookupService(nil, newBollsServer(t), db))
	ctx := context.Background()

	copied, err := notes.CopyReference(ctx, "WEB", "psalm 117")
	if err != nil {
		t.Fatal(err)
	}
	if len(copied) != 2 || copied[0].Ref != "Psalms 117:1" || copied[1].Ref != "Psalms 117:2" {
		t.Fatalf("copied = %+v", copied)
	}
	if copied[1].Text != "For his loving kindness is great toward us." {
		t.Errorf("text = %q", copied[1].Text)
	}

	doc, _ := sermons.Load()
	if len(doc.VersesNotes) != 2 {
		t.Errorf("stored notes = %+v", doc.VersesNotes)
	}

	if _, err := notes.CopyChapter(ctx, "WEB", 19, 151); !errors.Is(err, bible.ErrParse) {
		t.Errorf("out of range chapter err = %v", err)
	}
}
