package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/kiraleos/sermon-assistant/internal/rotation"
	"github.com/kiraleos/sermon-assistant/internal/store"
)

var ErrKeyIndex = errors.New("api key index out of range")

// KeyStore is the part of the settings database that holds API keys.
type KeyStore interface {
	ListAPIKeys() ([]string, error)
}

// Assistant sends prompts to the model, rotating through the stored API keys
// when a key runs out of quota. It remembers which key is current for the
// lifetime of the process.
type Assistant struct {
	model ChatModel
	keys  KeyStore

	mu      sync.Mutex
	current int
}

func NewAssistant(model ChatModel, keys KeyStore) *Assistant {
	return &Assistant{model: model, keys: keys}
}

// CurrentKey returns the index of the key the next prompt starts with.
func (a *Assistant) CurrentKey() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

// SwitchKey makes index the current key.
func (a *Assistant) SwitchKey(index int) error {
	keys, err := a.keys.ListAPIKeys()
	if err != nil {
		return fmt.Errorf("failed to load api keys: %w", err)
	}
	if index < 0 || index >= len(keys) {
		return fmt.Errorf("%w: %d of %d", ErrKeyIndex, index, len(keys))
	}
	a.mu.Lock()
	a.current = index
	a.mu.Unlock()
	slog.Info("switched api key", "index", index+1, "key", rotation.Credential(keys[index]).Masked())
	return nil
}

// Prompt runs prompt against the model with history as context. The returned
// outcome is never QuotaExceeded: quota failures rotate until a key works or
// all keys are exhausted.
func (a *Assistant) Prompt(ctx context.Context, history []store.Turn, prompt string) (rotation.Outcome[string], error) {
	stored, err := a.keys.ListAPIKeys()
	if err != nil {
		return rotation.Outcome[string]{}, fmt.Errorf("failed to load api keys: %w", err)
	}
	creds := make([]rotation.Credential, len(stored))
	for i, k := range stored {
		creds[i] = rotation.Credential(k)
	}

	start := a.CurrentKey()
	out, idx := rotation.Run[string](ctx, creds, start, func(ctx context.Context, key rotation.Credential) rotation.Outcome[string] {
		return outcome(a.model.Send(ctx, key, history, prompt))
	}, logAttempt(ctx))

	if len(creds) > 0 {
		a.mu.Lock()
		a.current = idx
		a.mu.Unlock()
	}
	return out, nil
}

func logAttempt(ctx context.Context) rotation.Observer {
	return func(at rotation.Attempt) {
		switch {
		case at.Kind == rotation.Success:
			slog.DebugContext(ctx, "gemini request succeeded", "key_index", at.Index+1, "key", at.Key.Masked())
		case at.Next >= 0:
			slog.WarnContext(ctx, "quota exceeded for current key, switching",
				"key_index", at.Index+1, "key", at.Key.Masked(), "next_index", at.Next+1, "error", at.Message)
		default:
			slog.ErrorContext(ctx, "gemini request failed",
				"key_index", at.Index+1, "key", at.Key.Masked(), "kind", at.Kind.String(), "error", at.Message)
		}
	}
}
