// Package assistant is the AI shopping assistant backed by Gemini.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	basePrompt = "You are a helpful shopping assistant. Format your responses in markdown when appropriate. "

	chatMaxOutputTokens = 250
	chatTemperature     = 0.7
)

var (
	ErrEmptyConversation = errors.New("conversation is empty")
	ErrLastNotUser       = errors.New("conversation must end with a user message")
)

// Message is one turn of the conversation as the storefront sees it.
type Message struct {
	Role    string `json:"role" validate:"required,oneof=user assistant"`
	Content string `json:"content" validate:"required,max=4000"`
}

// CartLine is the cart context passed along with a conversation.
type CartLine struct {
	Name     string
	Quantity int
}

type ChatContext struct {
	CartItems   []CartLine
	Preferences []string
}

type Log interface {
	Info(string, ...zap.Field)
	Error(string, ...zap.Field)
}

// generator is the slice of the genai Models service the assistant uses.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	GenerateContentStream(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error]
}

type Assistant struct {
	models generator
	model  string
	log    Log
}

// New connects to the Gemini API.
func New(ctx context.Context, apiKey, model string, log Log) (*Assistant, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &Assistant{models: client.Models, model: model, log: log}, nil
}

// convertRole maps storefront roles onto Gemini roles.
func convertRole(role string) genai.Role {
	if role == "assistant" {
		return genai.RoleModel
	}
	return genai.RoleUser
}

// SystemPrompt builds the fixed instruction extended with the shopper's context.
func SystemPrompt(cc ChatContext) string {
	var b strings.Builder
	b.WriteString(basePrompt)
	if len(cc.CartItems) > 0 {
		lines := make([]string, 0, len(cc.CartItems))
		for _, it := range cc.CartItems {
			lines = append(lines, fmt.Sprintf("%s (%dx)", it.Name, it.Quantity))
		}
		fmt.Fprintf(&b, "Current cart items: %s. ", strings.Join(lines, ", "))
	}
	if len(cc.Preferences) > 0 {
		fmt.Fprintf(&b, "User preferences: %s. ", strings.Join(cc.Preferences, ", "))
	}
	return strings.TrimSpace(b.String())
}

// Chat streams the assistant's reply to history. onChunk receives every text
// chunk as it arrives; the full reply is returned.
func (a *Assistant) Chat(ctx context.Context, history []Message, cc ChatContext, onChunk func(string) error) (string, error) {
	if len(history) == 0 {
		return "", ErrEmptyConversation
	}
	if convertRole(history[len(history)-1].Role) != genai.RoleUser {
		return "", ErrLastNotUser
	}

	contents := make([]*genai.Content, 0, len(history))
	for _, msg := range history {
		contents = append(contents, genai.NewContentFromText(msg.Content, convertRole(msg.Role)))
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{genai.NewPartFromText(SystemPrompt(cc))}},
		MaxOutputTokens:   chatMaxOutputTokens,
		Temperature:       genai.Ptr[float32](chatTemperature),
	}

	var full strings.Builder
	for resp, err := range a.models.GenerateContentStream(ctx, a.model, contents, config) {
		if err != nil {
			a.log.Error("Gemini stream failed", zap.Error(err))
			return full.String(), fmt.Errorf("gemini chat: %w", err)
		}
		chunk := resp.Text()
		if chunk == "" {
			continue
		}
		full.WriteString(chunk)
		if onChunk != nil {
			if err := onChunk(chunk); err != nil {
				return full.String(), err
			}
		}
	}

	a.log.Info("Chat reply streamed", zap.Int("turns", len(history)), zap.Int("chars", full.Len()))
	return full.String(), nil
}
