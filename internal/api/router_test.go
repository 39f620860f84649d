package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/kiraleos/sermon-assistant/internal/auth"
	"github.com/kiraleos/sermon-assistant/internal/bolls"
	"github.com/kiraleos/sermon-assistant/internal/core"
	"github.com/kiraleos/sermon-assistant/internal/rotation"
	"github.com/kiraleos/sermon-assistant/internal/sermon"
	"github.com/kiraleos/sermon-assistant/internal/store"
)

type echoModel struct {
	exhausted map[rotation.Credential]bool
}

func (m echoModel) Send(ctx context.Context, key rotation.Credential, history []store.Turn, prompt string) (string, error) {
	if m.exhausted[key] {
		return "", status.Error(codes.ResourceExhausted, "quota")
	}
	return "echo: " + prompt, nil
}

type testEnv struct {
	server *httptest.Server
	db     *store.SQLiteStore
}

func newTestEnv(t *testing.T, model core.ChatModel, secret string) *testEnv {
	t.Helper()
	dir := t.TempDir()

	db, err := store.NewSQLiteStore(filepath.Join(dir, "secrets.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	bibleMux := http.NewServeMux()
	bibleMux.HandleFunc("/get-text/WEB/43/3/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"pk": 1, "verse": 16, "text": "For God so loved the world"}, {"pk": 2, "verse": 17, "text": "For God didn't send his Son"}]`))
	})
	bibleSrv := httptest.NewServer(bibleMux)
	t.Cleanup(bibleSrv.Close)

	sermons := sermon.NewStore(filepath.Join(dir, "sermon_data.json"))
	assistant := core.NewAssistant(model, db)
	lookup := core.NewLookupService(nil, bolls.NewClient(bibleSrv.URL, nil), db)
	handler := NewAPIHandler(Deps{
		Chat:      core.NewChatService(db, assistant),
		Lookup:    lookup,
		Notes:     core.NewNotesService(assistant, sermons, lookup),
		Sermons:   sermons,
		Keys:      db,
		JWTSecret: secret,
	})

	srv := httptest.NewServer(NewRouter(handler))
	t.Cleanup(srv.Close)
	return &testEnv{server: srv, db: db}
}

func (e *testEnv) do(t *testing.T, method, path, body string, out any) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, e.server.URL+path, rd)
	if err != nil {
		t.Fatal(err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("%s %s: decode: %v", method, path, err)
		}
	}
	return resp
}

func TestReferenceEndpoint(t *testing.T) {
	env := newTestEnv(t, echoModel{}, "")

	var ok referenceResponse
	if resp := env.do(t, "GET", "/api/reference?q=jhn+3+16", "", &ok); resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ok.Label != "John 3:16" || ok.Reference.Book != 43 {
		t.Errorf("response = %+v", ok)
	}

	var bad errorResponse
	if resp := env.do(t, "GET", "/api/reference?q=Genesis+51", "", &bad); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if bad.Kind != "parse_error" {
		t.Errorf("kind = %q", bad.Kind)
	}
}

func TestSearchAndChapterEndpoints(t *testing.T) {
	env := newTestEnv(t, echoModel{}, "")

	var res core.LookupResult
	if resp := env.do(t, "GET", "/api/search?q=John+3:17", "", &res); resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if res.Text != "For God didn't send his Son" || res.Translation != "WEB" {
		t.Errorf("result = %+v", res)
	}

	var chapter chapterResponse
	if resp := env.do(t, "GET", "/api/bible/web/john/3", "", &chapter); resp.StatusCode != http.StatusOK {
		t.Fatalf("chapter status = %d", resp.StatusCode)
	}
	if len(chapter.Verses) != 2 || chapter.Book != "John" {
		t.Errorf("chapter = %+v", chapter)
	}
	if resp := env.do(t, "GET", "/api/bible/WEB/nobook/3", "", nil); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown book status = %d", resp.StatusCode)
	}

	var history []store.SearchEntry
	env.do(t, "GET", "/api/search/history", "", &history)
	if len(history) != 1 || history[0].Query != "John 3:17" {
		t.Errorf("history = %+v", history)
	}
}

func TestKeysEndpoints(t *testing.T) {
	env := newTestEnv(t, echoModel{}, "")

	var keys keysResponse
	resp := env.do(t, "PUT", "/api/keys", `{"keys": ["AIzaFirst1234", "AIzaSecond5678"]}`, &keys)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if len(keys.Keys) != 2 || keys.Keys[0] != "****1234" || keys.Current != 0 {
		t.Errorf("keys = %+v", keys)
	}

	env.do(t, "POST", "/api/keys/current", `{"index": 1}`, &keys)
	if keys.Current != 1 {
		t.Errorf("current = %d", keys.Current)
	}
	if resp := env.do(t, "POST", "/api/keys/current", `{"index": 7}`, nil); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad index status = %d", resp.StatusCode)
	}
}

func TestConversationEndpoints(t *testing.T) {
	env := newTestEnv(t, echoModel{}, "")

	var created conversationResponse
	if resp := env.do(t, "POST", "/api/conversations", "", &created); resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var errResp errorResponse
	resp := env.do(t, "POST", "/api/conversations/"+created.ID+"/messages", `{"content": "hello"}`, &errResp)
	if resp.StatusCode != http.StatusPreconditionFailed || errResp.Kind != "no_credentials" {
		t.Errorf("no keys: status = %d, body = %+v", resp.StatusCode, errResp)
	}

	env.db.ReplaceAPIKeys([]string{"key-one"})
	var reply store.Turn
	if resp := env.do(t, "POST", "/api/conversations/"+created.ID+"/messages", `{"content": "hello"}`, &reply); resp.StatusCode != http.StatusOK {
		t.Fatalf("ask status = %d", resp.StatusCode)
	}
	if reply.Content != "echo: hello" {
		t.Errorf("reply = %+v", reply)
	}

	var got conversationResponse
	env.do(t, "GET", "/api/conversations/"+created.ID, "", &got)
	if len(got.Turns) != 2 || !strings.HasSuffix(got.Label, " - hello...") {
		t.Errorf("conversation = %+v", got)
	}

	env.do(t, "PATCH", "/api/conversations/"+created.ID, `{"label": "Greetings"}`, &got)
	if got.Label != "Greetings" {
		t.Errorf("label = %q", got.Label)
	}

	if resp := env.do(t, "DELETE", "/api/conversations/"+created.ID, "", nil); resp.StatusCode != http.StatusNoContent {
		t.Errorf("delete status = %d", resp.StatusCode)
	}
	if resp := env.do(t, "GET", "/api/conversations/"+created.ID, "", nil); resp.StatusCode != http.StatusNotFound {
		t.Errorf("get after delete status = %d", resp.StatusCode)
	}
}

func TestKeysExhaustedMapsTo429(t *testing.T) {
	env := newTestEnv(t, echoModel{exhausted: map[rotation.Credential]bool{"a": true, "b": true}}, "")
	env.db.ReplaceAPIKeys([]string{"a", "b"})

	var errResp errorResponse
	resp := env.do(t, "POST", "/api/research", `{"query": "grace"}`, &errResp)
	if resp.StatusCode != http.StatusTooManyRequests || errResp.Kind != "keys_exhausted" {
		t.Errorf("status = %d, body = %+v", resp.StatusCode, errResp)
	}
}

func TestSermonEndpoints(t *testing.T) {
	env := newTestEnv(t, echoModel{}, "")
	env.db.ReplaceAPIKeys([]string{"k"})

	var s sermon.Sermon
	env.do(t, "PUT", "/api/sermon", `{"title": "Good News", "intro": "hi", "header": {"name": "Jo"}}`, &s)
	if s.Title != "Good News" || s.Settings.DefaultTranslation != "WEB" {
		t.Errorf("sermon = %+v", s)
	}

	var copied []sermon.Note
	if resp := env.do(t, "POST", "/api/sermon/notes/copy", `{"reference": "John 3:16"}`, &copied); resp.StatusCode != http.StatusCreated {
		t.Fatalf("copy verse status = %d", resp.StatusCode)
	}
	if len(copied) != 1 || copied[0].Ref != "John 3:16" || copied[0].Text != "For God so loved the world" {
		t.Fatalf("copied = %+v", copied)
	}
	note := copied[0]

	var edited sermon.Note
	env.do(t, "PUT", "/api/sermon/notes/"+note.ID, `{"ref": "John 3:16", "text": "For God so loved", "note": "key verse"}`, &edited)
	if edited.Note != "key verse" || edited.Timestamp != note.Timestamp {
		t.Errorf("edited = %+v", edited)
	}

	var sugg suggestionsResponse
	env.do(t, "POST", "/api/sermon/suggestions", `{"notes": "love", "add": true}`, &sugg)
	if sugg.Note == nil || sugg.Note.Ref != sermon.SuggestionsRef {
		t.Errorf("suggestions = %+v", sugg)
	}

	var notes []sermon.Note
	env.do(t, "GET", "/api/sermon/notes?sort=ref", "", &notes)
	if len(notes) != 2 || notes[0].Ref != "John 3:16" {
		t.Errorf("notes = %+v", notes)
	}

	resp := env.do(t, "GET", "/api/sermon/export", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export status = %d", resp.StatusCode)
	}
	wantName := "Good_News_" + time.Now().Format("2006-01-02") + ".docx"
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, wantName) {
		t.Errorf("Content-Disposition = %q", cd)
	}

	if resp := env.do(t, "DELETE", "/api/sermon/notes/"+note.ID, "", nil); resp.StatusCode != http.StatusNoContent {
		t.Errorf("delete status = %d", resp.StatusCode)
	}
	if resp := env.do(t, "DELETE", "/api/sermon/notes/"+note.ID, "", nil); resp.StatusCode != http.StatusNotFound {
		t.Errorf("second delete status = %d", resp.StatusCode)
	}

	env.do(t, "DELETE", "/api/sermon", "", &s)
	if s.Title != "" {
		t.Errorf("cleared sermon = %+v", s)
	}
}

func TestAuthGuard(t *testing.T) {
	env := newTestEnv(t, echoModel{}, "s3cret")

	if resp := env.do(t, "GET", "/api/health", "", nil); resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d", resp.StatusCode)
	}
	if resp := env.do(t, "GET", "/api/sermon", "", nil); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("unauthenticated status = %d", resp.StatusCode)
	}

	token, err := auth.GenerateJWT("s3cret", "pastor", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	req, _ := http.NewRequest("GET", env.server.URL+"/api/sermon", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("authenticated status = %d", resp.StatusCode)
	}
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{rotation.Outcome[string]{Kind: rotation.OtherAPIError, Message: "bad"}.Err(), http.StatusBadGateway},
		{rotation.Outcome[string]{Kind: rotation.UnexpectedError}.Err(), http.StatusInternalServerError},
		{&bolls.StatusError{URL: "x", Status: 503}, http.StatusBadGateway},
		{store.ErrDuplicateKey, http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		if got, _ := statusFor(c.err); got != c.want {
			t.Errorf("statusFor(%v) = %d, want %d", c.err, got, c.want)
		}
	}
}

func TestChapterCopyContentAndPreviewEndpoints(t *testing.T) {
	env := newTestEnv(t, echoModel{}, "")

	var copied []sermon.Note
	if resp := env.do(t, "POST", "/api/bible/WEB/john/3/notes", "", &copied); resp.StatusCode != http.StatusCreated {
		t.Fatalf("copy chapter status = %d", resp.StatusCode)
	}
	if len(copied) != 2 || copied[0].Ref != "John 3:16" || copied[1].Ref != "John 3:17" {
		t.Fatalf("copied = %+v", copied)
	}

	var s sermon.Sermon
	env.do(t, "POST", "/api/sermon/content/append", `{"note_id": "`+copied[1].ID+`"}`, &s)
	if s.Content != "\n\nFor God didn't send his Son" {
		t.Errorf("content after one = %q", s.Content)
	}
	env.do(t, "POST", "/api/sermon/content/append", "", &s)
	if !strings.HasSuffix(s.Content, "For God so loved the world\n\nFor God didn't send his Son") {
		t.Errorf("content after all = %q", s.Content)
	}
	if resp := env.do(t, "POST", "/api/sermon/content/append", `{"note_id": "nope"}`, nil); resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown note status = %d", resp.StatusCode)
	}

	resp, err := http.Get(env.server.URL + "/api/sermon/preview")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("preview Content-Type = %q", ct)
	}
	if !strings.Contains(string(body), "<b>John 3:17:</b>") {
		t.Errorf("preview body = %s", body)
	}
}

func TestJWTMiddlewareSetsSubject(t *testing.T) {
	h := NewAPIHandler(Deps{JWTSecret: "s3cret"})
	var seen string
	protected := h.JWTAuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = subjectFrom(r.Context())
	}))

	token, err := auth.GenerateJWT("s3cret", "pastor", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest("GET", "/api/sermon", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	protected.ServeHTTP(httptest.NewRecorder(), req)
	if seen != "pastor" {
		t.Errorf("subject = %q", seen)
	}

	open := NewAPIHandler(Deps{}).JWTAuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = subjectFrom(r.Context())
	}))
	open.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/sermon", nil))
	if seen != "" {
		t.Errorf("subject without auth = %q", seen)
	}
}
