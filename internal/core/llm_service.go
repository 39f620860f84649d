package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"github.com/googleapis/gax-go/v2/apierror"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/kiraleos/sermon-assistant/internal/rotation"
	"github.com/kiraleos/sermon-assistant/internal/store"
)

const (
	DefaultModelName = "gemini-1.5-flash-latest"

	sermonSystemInstruction = "You are a sermon assistant designed to assist pastors and ministers in preparing sermons, " +
		"with a focus on biblical teachings and spiritual guidance. Recognize that sermon perspectives may vary, " +
		"including non-mainstream views, and respect the user's preferences while maintaining theological accuracy " +
		"where applicable. If a request includes a perspective not widely accepted in biblical scholarship, " +
		"acknowledge this politely with a brief note and proceed to provide relevant assistance.\n\n" +
		"Respond exclusively with content relevant to sermon preparation, such as biblical verse suggestions, " +
		"thematic insights, sermon outline ideas, or spiritual reflections. Do not generate full sermons; instead, " +
		"provide outlines, key points, or verse references to support the user's creative process. Avoid any content " +
		"that is sexual, off-topic, or uses inappropriate language. If a request is unclear or unrelated to sermon " +
		"preparation, politely ask how it relates to the sermon.\n\n" +
		"When providing Bible verses, include the full reference (e.g., \"John 3:16\") and the verse text, separating " +
		"each verse with a blank line. Keep responses concise and actionable."

	emptyResponseText = "I received an empty or non-text response, please try rephrasing your question."
)

// ChatModel sends a prompt, with the prior turns of the conversation, using a
// single API key.
type ChatModel interface {
	Send(ctx context.Context, key rotation.Credential, history []store.Turn, prompt string) (string, error)
}

// LLMService talks to Gemini. Clients are created lazily, one per API key.
type LLMService struct {
	modelName string
	clients   sync.Map // rotation.Credential -> *genai.Client
	opts      []option.ClientOption
}

func NewLLMService(modelName string, opts ...option.ClientOption) *LLMService {
	if modelName == "" {
		modelName = DefaultModelName
	}
	return &LLMService{modelName: modelName, opts: opts}
}

func (s *LLMService) client(ctx context.Context, key rotation.Credential) (*genai.Client, error) {
	if v, ok := s.clients.Load(key); ok {
		return v.(*genai.Client), nil
	}

	opts := append([]option.ClientOption{option.WithAPIKey(string(key))}, s.opts...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	v, loaded := s.clients.LoadOrStore(key, client)
	if loaded {
		client.Close()
	}
	return v.(*genai.Client), nil
}

// Close releases every cached client.
func (s *LLMService) Close() {
	s.clients.Range(func(k, v any) bool {
		if err := v.(*genai.Client).Close(); err != nil {
			slog.Warn("error closing GenAI client", "key", k.(rotation.Credential).Masked(), "error", err)
		}
		s.clients.Delete(k)
		return true
	})
}

func (s *LLMService) Send(ctx context.Context, key rotation.Credential, history []store.Turn, prompt string) (string, error) {
	client, err := s.client(ctx, key)
	if err != nil {
		return "", err
	}

	model := client.GenerativeModel(s.modelName)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(sermonSystemInstruction)},
	}

	session := model.StartChat()
	session.History = toContents(history)

	resp, err := session.SendMessage(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini chat SendMessage failed: %w", err)
	}
	return responseText(resp), nil
}

func toContents(turns []store.Turn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(turns))
	for _, t := range turns {
		contents = append(contents, &genai.Content{
			Role:  t.Role,
			Parts: []genai.Part{genai.Text(t.Content)},
		})
	}
	return contents
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		slog.Debug("gemini response had no candidates")
		return emptyResponseText
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	if b.Len() == 0 {
		return emptyResponseText
	}
	return b.String()
}

// Classify maps an error from a model call to a rotation outcome kind.
// Quota errors (gRPC ResourceExhausted, HTTP 429) rotate to the next key; any
// other error reported by the Google API is an API error; the rest, including
// cancellation, is unexpected.
func Classify(err error) rotation.Kind {
	if err == nil {
		return rotation.Success
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return rotation.UnexpectedError
	}

	var apiErr *apierror.APIError
	if errors.As(err, &apiErr) {
		if st := apiErr.GRPCStatus(); st != nil {
			if kind, ok := grpcKind(st.Code()); ok {
				return kind
			}
		}
		if apiErr.HTTPCode() == http.StatusTooManyRequests {
			return rotation.QuotaExceeded
		}
		return rotation.OtherAPIError
	}

	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		if gErr.Code == http.StatusTooManyRequests {
			return rotation.QuotaExceeded
		}
		return rotation.OtherAPIError
	}

	if st, ok := status.FromError(err); ok {
		if kind, ok := grpcKind(st.Code()); ok {
			return kind
		}
		return rotation.OtherAPIError
	}

	var blocked *genai.BlockedError
	if errors.As(err, &blocked) {
		return rotation.OtherAPIError
	}
	return rotation.UnexpectedError
}

// grpcKind classifies the codes that mean the same thing however the error
// reached us: quota, or a timeout/cancellation that is never retried.
func grpcKind(code codes.Code) (rotation.Kind, bool) {
	switch code {
	case codes.ResourceExhausted:
		return rotation.QuotaExceeded, true
	case codes.Canceled, codes.DeadlineExceeded, codes.Unknown:
		return rotation.UnexpectedError, true
	}
	return 0, false
}

// outcome turns a model reply into a rotation outcome.
func outcome(text string, err error) rotation.Outcome[string] {
	switch Classify(err) {
	case rotation.Success:
		return rotation.Ok(text)
	case rotation.QuotaExceeded:
		return rotation.Quota[string](err.Error())
	case rotation.OtherAPIError:
		return rotation.APIError[string](err.Error())
	default:
		return rotation.Unexpected[string](err.Error())
	}
}
