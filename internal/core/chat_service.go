package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kiraleos/sermon-assistant/internal/store"
)

const labelSnippetLen = 50

var (
	ErrConversationNotFound = fmt.Errorf("conversation %w", store.ErrNotFound)
	ErrEmptyPrompt          = errors.New("message is empty")
	ErrEmptyLabel           = errors.New("label is empty")
)

type ChatService struct {
	dbStore   *store.SQLiteStore
	assistant *Assistant
	now       func() time.Time
}

func NewChatService(db *store.SQLiteStore, assistant *Assistant) *ChatService {
	return &ChatService{
		dbStore:   db,
		assistant: assistant,
		now:       time.Now,
	}
}

// AutoLabel names a conversation after the date and its first message.
func AutoLabel(firstMessage string, now time.Time) string {
	snippet := strings.TrimSpace(firstMessage)
	if r := []rune(snippet); len(r) > labelSnippetLen {
		snippet = string(r[:labelSnippetLen])
	}
	return fmt.Sprintf("%s - %s...", now.Format("2006-01-02"), snippet)
}

func (s *ChatService) CurrentKey() int {
	return s.assistant.CurrentKey()
}

func (s *ChatService) SwitchKey(index int) error {
	return s.assistant.SwitchKey(index)
}

// CreateConversation starts a conversation. When firstMessage is set it is
// sent right away; the conversation is kept even if that exchange fails.
func (s *ChatService) CreateConversation(ctx context.Context, label string, firstMessage *string) (*store.Conversation, []store.Turn, error) {
	conv, err := s.dbStore.CreateConversation(strings.TrimSpace(label))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create conversation in DB: %w", err)
	}
	if firstMessage == nil || strings.TrimSpace(*firstMessage) == "" {
		return conv, nil, nil
	}

	if _, err := s.Ask(ctx, conv.ID, *firstMessage); err != nil {
		return conv, nil, err
	}
	conv, turns, err := s.GetConversation(conv.ID)
	if err != nil {
		return nil, nil, err
	}
	return conv, turns, nil
}

func (s *ChatService) ListConversations() ([]store.Conversation, error) {
	return s.dbStore.ListConversations()
}

// GetConversation returns (nil, nil, nil) when id is unknown.
func (s *ChatService) GetConversation(id string) (*store.Conversation, []store.Turn, error) {
	conv, err := s.dbStore.GetConversation(id)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	if conv == nil {
		return nil, nil, nil
	}
	turns, err := s.dbStore.Turns(id, store.MaxTurns)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get turns for conversation: %w", err)
	}
	return conv, turns, nil
}

func (s *ChatService) RenameConversation(id, label string) error {
	label = strings.TrimSpace(label)
	if label == "" {
		return ErrEmptyLabel
	}
	return s.dbStore.RenameConversation(id, label)
}

func (s *ChatService) DeleteConversation(id string) error {
	return s.dbStore.DeleteConversation(id)
}

// Ask sends prompt in the context of the conversation and stores the exchange.
// Nothing is stored when the model call fails; the error then wraps one of
// the rotation sentinels.
func (s *ChatService) Ask(ctx context.Context, conversationID, prompt string) (*store.Turn, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, ErrEmptyPrompt
	}

	conv, err := s.dbStore.GetConversation(conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to verify conversation: %w", err)
	}
	if conv == nil {
		return nil, ErrConversationNotFound
	}

	history, err := s.dbStore.Turns(conversationID, store.MaxTurns)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	out, err := s.assistant.Prompt(ctx, history, prompt)
	if err != nil {
		return nil, err
	}
	if err := out.Err(); err != nil {
		return nil, err
	}

	_, modelTurn, err := s.dbStore.AppendExchange(conversationID, prompt, out.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to store exchange: %w", err)
	}

	if removed, err := s.dbStore.TrimTurns(conversationID, store.MaxTurns); err != nil {
		slog.Warn("failed to trim conversation", "conversation_id", conversationID, "error", err)
	} else if removed > 0 {
		slog.Debug("trimmed conversation", "conversation_id", conversationID, "removed", removed)
	}

	if conv.Label == "" {
		first := prompt
		if len(history) > 0 {
			first = history[0].Content
		}
		label := AutoLabel(first, s.now())
		if err := s.dbStore.RenameConversation(conversationID, label); err != nil {
			slog.Warn("failed to label conversation", "conversation_id", conversationID, "error", err)
		}
	}

	return modelTurn, nil
}
