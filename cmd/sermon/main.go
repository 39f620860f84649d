// Package main is the command-line front end of the sermon assistant.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/alecthomas/kong"

	"github.com/kiraleos/sermon-assistant/internal/auth"
	"github.com/kiraleos/sermon-assistant/internal/bible"
	"github.com/kiraleos/sermon-assistant/internal/bolls"
	"github.com/kiraleos/sermon-assistant/internal/config"
	"github.com/kiraleos/sermon-assistant/internal/core"
	"github.com/kiraleos/sermon-assistant/internal/export"
	"github.com/kiraleos/sermon-assistant/internal/logging"
	"github.com/kiraleos/sermon-assistant/internal/rotation"
	"github.com/kiraleos/sermon-assistant/internal/sermon"
	"github.com/kiraleos/sermon-assistant/internal/store"
)

// CLI defines the command-line interface using Kong
var CLI struct {
	Translation string `name:"translation" short:"t" help:"Bible translation (default: the sermon's setting)"`
	Verbose     bool   `name:"verbose" short:"v" help:"Debug logging"`

	Parse         ParseCmd         `cmd:"" help:"Resolve a scripture reference without fetching it"`
	Read          ReadCmd          `cmd:"" help:"Print a chapter, marking the referenced verse"`
	Search        SearchCmd        `cmd:"" help:"Look up a reference, or search verses by keyword"`
	History       HistoryCmd       `cmd:"" help:"Show recent searches"`
	Keys          KeysCmd          `cmd:"" help:"Manage Gemini API keys"`
	Chat          ChatCmd          `cmd:"" help:"Ask the sermon assistant"`
	Conversations ConversationsCmd `cmd:"" help:"Manage saved conversations"`
	Notes         NotesCmd         `cmd:"" help:"Manage the sermon's verses and notes"`
	Suggest       SuggestCmd       `cmd:"" help:"Suggest Bible verses for sermon notes"`
	Preview       PreviewCmd       `cmd:"" help:"Render the sermon as HTML"`
	Export        ExportCmd        `cmd:"" help:"Export the sermon to a .docx file"`
	Token         TokenCmd         `cmd:"" help:"Mint a bearer token for the HTTP API"`
}

// app carries the services every command runs against.
type app struct {
	cfg       config.Config
	db        *store.SQLiteStore
	llm       *core.LLMService
	assistant *core.Assistant
	chat      *core.ChatService
	lookup    *core.LookupService
	notes     *core.NotesService
	sermons   *sermon.Store
}

func newApp(cfg config.Config) (*app, error) {
	db, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if cfg.GeminiAPIKey != "" {
		if keys, err := db.ListAPIKeys(); err == nil && len(keys) == 0 {
			if err := db.AddAPIKey(cfg.GeminiAPIKey); err != nil {
				slog.Warn("failed to seed api key from environment", "error", err)
			}
		}
	}

	a := &app{
		cfg:     cfg,
		db:      db,
		llm:     core.NewLLMService(cfg.GeminiModel),
		sermons: sermon.NewStore(cfg.SermonFile),
	}
	a.assistant = core.NewAssistant(a.llm, db)
	a.chat = core.NewChatService(db, a.assistant)
	a.lookup = core.NewLookupService(bible.NewParser(cfg.SimilarityThreshold), bolls.NewClient(cfg.BibleAPIURL, nil), db)
	a.notes = core.NewNotesService(a.assistant, a.sermons, a.lookup)
	return a, nil
}

func (a *app) Close() {
	a.llm.Close()
	a.db.Close()
}

// translation picks --translation, then the sermon's default, then the configured one.
func (a *app) translation() string {
	if CLI.Translation != "" {
		return strings.ToUpper(CLI.Translation)
	}
	if s, err := a.sermons.Load(); err == nil && s.Settings.DefaultTranslation != "" {
		return s.Settings.DefaultTranslation
	}
	return a.cfg.DefaultTranslation
}

type ParseCmd struct {
	Reference []string `arg:"" required:"" help:"Reference, e.g. 1 cor 13:4"`
}

func (c *ParseCmd) Run(a *app) error {
	ref, err := a.lookup.Parse(strings.Join(c.Reference, " "))
	if err != nil {
		return err
	}
	fmt.Printf("%s\tbook=%d chapter=%d verse=%d\n", ref, ref.Book, ref.Chapter, ref.Verse)
	return nil
}

type ReadCmd struct {
	Reference []string `arg:"" required:"" help:"Chapter or verse reference"`
}

func (c *ReadCmd) Run(ctx context.Context, a *app) error {
	ref, err := a.lookup.Parse(strings.Join(c.Reference, " "))
	if err != nil {
		return err
	}
	tr := a.translation()
	verses, err := a.lookup.Read(ctx, tr, ref.Book, ref.Chapter)
	if err != nil {
		return err
	}
	fmt.Printf("%s %d (%s)\n\n", ref.Book.Name(), ref.Chapter, tr)
	for _, v := range verses {
		marker := "  "
		if v.Verse == ref.Verse {
			marker = "> "
		}
		fmt.Printf("%s%d. %s\n", marker, v.Verse, v.Text)
	}
	return nil
}

type SearchCmd struct {
	Query []string `arg:"" required:"" help:"Reference or keywords"`
}

func (c *SearchCmd) Run(ctx context.Context, a *app) error {
	res, err := a.lookup.Search(ctx, a.translation(), strings.Join(c.Query, " "))
	if err != nil {
		return err
	}
	if res.Kind == core.KindReference {
		fmt.Printf("%s (%s)\n%s\n", res.Label, res.Translation, res.Text)
		return nil
	}
	if len(res.Matches) == 0 {
		fmt.Printf("No verses found for %q.\n", res.Query)
		return nil
	}
	for _, m := range res.Matches {
		fmt.Printf("%s: %s\n", m.Reference(), bolls.PlainText(m.Text))
	}
	return nil
}

type HistoryCmd struct {
	Limit int `name:"limit" short:"n" default:"10" help:"Entries to show"`
}

func (c *HistoryCmd) Run(a *app) error {
	entries, err := a.lookup.History(c.Limit)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\n", e.Timestamp.Local().Format(sermon.TimestampLayout), e.Query)
	}
	return w.Flush()
}

type KeysCmd struct {
	List   KeysListCmd   `cmd:"" default:"1" help:"List stored keys (masked)"`
	Add    KeysAddCmd    `cmd:"" help:"Append a key"`
	Remove KeysRemoveCmd `cmd:"" help:"Remove a key by its 1-based position"`
}

type KeysListCmd struct{}

func (c *KeysListCmd) Run(a *app) error {
	keys, err := a.db.ListAPIKeys()
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		fmt.Println("No API keys stored. Add one with: sermon keys add <key>")
		return nil
	}
	for i, k := range keys {
		fmt.Printf("%d. %s\n", i+1, rotation.Credential(k).Masked())
	}
	return nil
}

type KeysAddCmd struct {
	Key string `arg:"" help:"Gemini API key"`
}

func (c *KeysAddCmd) Run(a *app) error {
	if err := a.db.AddAPIKey(c.Key); err != nil {
		return err
	}
	fmt.Printf("Added %s\n", rotation.Credential(strings.TrimSpace(c.Key)).Masked())
	return nil
}

type KeysRemoveCmd struct {
	Position int `arg:"" help:"1-based key position"`
}

func (c *KeysRemoveCmd) Run(a *app) error {
	if err := a.db.RemoveAPIKey(c.Position - 1); err != nil {
		return err
	}
	fmt.Printf("Removed key %d\n", c.Position)
	return nil
}

type ChatCmd struct {
	Conversation string   `name:"conversation" short:"c" help:"Continue a saved conversation"`
	Key          int      `name:"key" short:"k" default:"1" help:"1-based key to try first"`
	Prompt       []string `arg:"" required:"" help:"Message"`
}

func (c *ChatCmd) Run(ctx context.Context, a *app) error {
	if c.Key != 1 {
		if err := a.chat.SwitchKey(c.Key - 1); err != nil {
			return fmt.Errorf("--key %d: %w", c.Key, err)
		}
	}
	prompt := strings.Join(c.Prompt, " ")

	if c.Conversation == "" {
		conv, turns, err := a.chat.CreateConversation(ctx, "", &prompt)
		if err != nil {
			if conv != nil {
				_ = a.chat.DeleteConversation(conv.ID)
			}
			return err
		}
		fmt.Printf("[%s] %s\n\n", conv.ID, conv.Label)
		if n := len(turns); n > 0 {
			fmt.Println(turns[n-1].Content)
		}
		return nil
	}

	reply, err := a.chat.Ask(ctx, c.Conversation, prompt)
	if err != nil {
		return err
	}
	fmt.Println(reply.Content)
	return nil
}

type ConversationsCmd struct {
	List   ConversationsListCmd   `cmd:"" default:"1" help:"List saved conversations"`
	Show   ConversationsShowCmd   `cmd:"" help:"Print a conversation"`
	Rename ConversationsRenameCmd `cmd:"" help:"Rename a conversation"`
	Delete ConversationsDeleteCmd `cmd:"" help:"Delete a conversation"`
}

type ConversationsListCmd struct{}

func (c *ConversationsListCmd) Run(a *app) error {
	convs, err := a.chat.ListConversations()
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, conv := range convs {
		fmt.Fprintf(w, "%s\t%s\t%s\n", conv.ID, conv.UpdatedAt.Local().Format(sermon.TimestampLayout), conv.Label)
	}
	return w.Flush()
}

type ConversationsShowCmd struct {
	ID string `arg:""`
}

func (c *ConversationsShowCmd) Run(a *app) error {
	conv, turns, err := a.chat.GetConversation(c.ID)
	if err != nil {
		return err
	}
	if conv == nil {
		return core.ErrConversationNotFound
	}
	fmt.Printf("%s\n\n", conv.Label)
	for _, t := range turns {
		who := "You"
		if t.Role == store.RoleModel {
			who = "Assistant"
		}
		fmt.Printf("%s:\n%s\n\n", who, t.Content)
	}
	return nil
}

type ConversationsRenameCmd struct {
	ID    string   `arg:""`
	Label []string `arg:"" required:""`
}

func (c *ConversationsRenameCmd) Run(a *app) error {
	return a.chat.RenameConversation(c.ID, strings.Join(c.Label, " "))
}

type ConversationsDeleteCmd struct {
	ID string `arg:""`
}

func (c *ConversationsDeleteCmd) Run(a *app) error {
	return a.chat.DeleteConversation(c.ID)
}

type NotesCmd struct {
	List      NotesListCmd      `cmd:"" default:"1" help:"List verses and notes"`
	Add       NotesAddCmd       `cmd:"" help:"Add a verse or note"`
	Copy      NotesCopyCmd      `cmd:"" help:"Fetch a verse, or every verse of a chapter, into the notes"`
	ToContent NotesToContentCmd `cmd:"" name:"to-content" help:"Append a note, or all notes, to the sermon content"`
	Delete    NotesDeleteCmd    `cmd:"" help:"Delete a note by id"`
}

type NotesListCmd struct {
	Sort string `name:"sort" short:"s" enum:"ref,time" default:"ref" help:"Sort by ref or time"`
}

func (c *NotesListCmd) Run(a *app) error {
	s, err := a.sermons.Load()
	if err != nil {
		return err
	}
	for _, n := range s.SortedNotes(sermon.ParseSortMode(c.Sort)) {
		fmt.Printf("[%s] %s: %s\n", n.ID, n.Ref, n.Text)
		if n.Note != "" {
			fmt.Printf("    Note: %s\n", n.Note)
		}
	}
	return nil
}

type NotesAddCmd struct {
	Ref  string   `name:"ref" short:"r" default:"Note" help:"Reference or label"`
	Note string   `name:"note" short:"n" help:"Personal note"`
	Text []string `arg:"" required:"" help:"Verse text or note body"`
}

func (c *NotesAddCmd) Run(a *app) error {
	var added sermon.Note
	_, err := a.sermons.Update(func(s *sermon.Sermon) error {
		n, err := s.AddNote(c.Ref, strings.Join(c.Text, " "), c.Note)
		added = n
		return err
	})
	if err != nil {
		return err
	}
	fmt.Printf("Added %s (%s)\n", added.Ref, added.ID)
	return nil
}

type NotesCopyCmd struct {
	Reference []string `arg:"" required:""`
}

func (c *NotesCopyCmd) Run(ctx context.Context, a *app) error {
	notes, err := a.notes.CopyReference(ctx, a.translation(), strings.Join(c.Reference, " "))
	if err != nil {
		return err
	}
	for _, n := range notes {
		fmt.Printf("Added %s: %s\n", n.Ref, n.Text)
	}
	return nil
}

type NotesToContentCmd struct {
	ID string `arg:"" optional:"" help:"Note id (default: every note)"`
}

func (c *NotesToContentCmd) Run(a *app) error {
	_, err := a.sermons.Update(func(s *sermon.Sermon) error {
		if c.ID == "" {
			return s.AppendAllToContent()
		}
		return s.AppendToContent(c.ID)
	})
	if err != nil {
		return err
	}
	fmt.Println("Copied to sermon content.")
	return nil
}

type NotesDeleteCmd struct {
	ID string `arg:""`
}

func (c *NotesDeleteCmd) Run(a *app) error {
	_, err := a.sermons.Update(func(s *sermon.Sermon) error {
		return s.DeleteNote(c.ID)
	})
	return err
}

type SuggestCmd struct {
	Add   bool     `name:"add" help:"Store the suggestions as a note"`
	Notes []string `arg:"" required:"" help:"Sermon notes to find verses for"`
}

func (c *SuggestCmd) Run(ctx context.Context, a *app) error {
	text, err := a.notes.Suggest(ctx, strings.Join(c.Notes, " "))
	if err != nil {
		return err
	}
	fmt.Println(text)
	if c.Add {
		if _, err := a.notes.AddSuggestions(text); err != nil {
			return err
		}
		fmt.Println("\nSuggestions added to the sermon notes.")
	}
	return nil
}

type PreviewCmd struct {
	Out string `name:"out" short:"o" type:"path" help:"Write the HTML to a file instead of stdout"`
}

func (c *PreviewCmd) Run(a *app) error {
	s, err := a.sermons.Load()
	if err != nil {
		return err
	}
	if c.Out == "" {
		return export.WritePreview(os.Stdout, s)
	}
	f, err := os.Create(c.Out)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", c.Out, err)
	}
	if err := export.WritePreview(f, s); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Preview written to %s\n", c.Out)
	return nil
}

type ExportCmd struct {
	Out string `name:"out" short:"o" type:"path" help:"Output file (default: <title>_<date>.docx in the export dir)"`
}

func (c *ExportCmd) Run(a *app) error {
	s, err := a.sermons.Load()
	if err != nil {
		return err
	}
	out := c.Out
	if out == "" {
		out = filepath.Join(a.cfg.ExportDir, export.DefaultFilename(s, time.Now()))
	}
	path, err := export.SaveDocx(out, s)
	if err != nil {
		return err
	}
	fmt.Printf("Sermon exported to %s\n", path)
	return nil
}

type TokenCmd struct {
	Subject string        `name:"subject" default:"sermon-cli" help:"Token subject"`
	TTL     time.Duration `name:"ttl" default:"24h" help:"Token lifetime"`
}

func (c *TokenCmd) Run(a *app) error {
	token, err := auth.GenerateJWT(a.cfg.JWTSecret, c.Subject, c.TTL)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name("sermon"),
		kong.Description("Sermon preparation assistant: scripture lookup, notes and Gemini research"),
		kong.UsageOnError(),
	)

	config.LoadConfig()
	cfg := config.AppConfig
	level := cfg.LogLevel
	if CLI.Verbose {
		level = "DEBUG"
	}
	_, closeLog, err := logging.Setup(logging.Options{Level: level, File: cfg.LogFile, Journal: cfg.LogJournal})
	kctx.FatalIfErrorf(err)
	defer closeLog()

	a, err := newApp(cfg)
	kctx.FatalIfErrorf(err)
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	kctx.BindTo(ctx, (*context.Context)(nil))
	err = kctx.Run(a)
	if err != nil {
		slog.Debug("command failed", "command", kctx.Command(), "error", err)
	}
	kctx.FatalIfErrorf(err)
}
