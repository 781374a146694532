package assistant

import (
	"context"
	"errors"
	"iter"
	"testing"

	"github.com/drstein77/grocerystore/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type fakeModels struct {
	chunks    []string
	streamErr error
	reply     string

	gotContents []*genai.Content
	gotConfig   *genai.GenerateContentConfig
	calls       int
}

func textResponse(s string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Role: "model", Parts: []*genai.Part{{Text: s}}},
		}},
	}
}

func (f *fakeModels) GenerateContent(_ context.Context, _ string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.calls++
	f.gotContents, f.gotConfig = contents, config
	return textResponse(f.reply), nil
}

func (f *fakeModels) GenerateContentStream(_ context.Context, _ string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error] {
	f.calls++
	f.gotContents, f.gotConfig = contents, config
	return func(yield func(*genai.GenerateContentResponse, error) bool) {
		for _, c := range f.chunks {
			if !yield(textResponse(c), nil) {
				return
			}
		}
		if f.streamErr != nil {
			yield(nil, f.streamErr)
		}
	}
}

func newTestAssistant(f *fakeModels) *Assistant {
	return &Assistant{models: f, model: "test-model", log: logger.NewNop()}
}

func TestSystemPrompt(t *testing.T) {
	assert.Equal(t,
		"You are a helpful shopping assistant. Format your responses in markdown when appropriate.",
		SystemPrompt(ChatContext{}))

	prompt := SystemPrompt(ChatContext{
		CartItems:   []CartLine{{Name: "Rice", Quantity: 2}, {Name: "Palm Oil", Quantity: 1}},
		Preferences: []string{"vegetarian", "low-sugar"},
	})
	assert.Contains(t, prompt, "Current cart items: Rice (2x), Palm Oil (1x).")
	assert.Contains(t, prompt, "User preferences: vegetarian, low-sugar.")
}

func TestChatStreamsChunks(t *testing.T) {
	f := &fakeModels{chunks: []string{"Try ", "", "brown rice."}}
	a := newTestAssistant(f)

	var got []string
	reply, err := a.Chat(context.Background(), []Message{
		{Role: "assistant", Content: "Hello! How can I help?"},
		{Role: "user", Content: "Healthier rice?"},
	}, ChatContext{}, func(chunk string) error {
		got = append(got, chunk)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, "Try brown rice.", reply)
	assert.Equal(t, []string{"Try ", "brown rice."}, got)

	require.Len(t, f.gotContents, 2)
	assert.EqualValues(t, "model", f.gotContents[0].Role)
	assert.EqualValues(t, "user", f.gotContents[1].Role)
	assert.EqualValues(t, 250, f.gotConfig.MaxOutputTokens)
	require.NotNil(t, f.gotConfig.Temperature)
	assert.InDelta(t, 0.7, *f.gotConfig.Temperature, 1e-6)
}

func TestChatRejectsBadHistory(t *testing.T) {
	f := &fakeModels{}
	a := newTestAssistant(f)

	_, err := a.Chat(context.Background(), nil, ChatContext{}, nil)
	assert.ErrorIs(t, err, ErrEmptyConversation)

	_, err = a.Chat(context.Background(), []Message{{Role: "assistant", Content: "hi"}}, ChatContext{}, nil)
	assert.ErrorIs(t, err, ErrLastNotUser)
	assert.Zero(t, f.calls)
}

func TestChatPropagatesStreamError(t *testing.T) {
	boom := errors.New("quota exceeded")
	a := newTestAssistant(&fakeModels{chunks: []string{"partial"}, streamErr: boom})

	reply, err := a.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}}, ChatContext{}, nil)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "partial", reply)
}

func TestChatStopsWhenConsumerFails(t *testing.T) {
	gone := errors.New("client went away")
	a := newTestAssistant(&fakeModels{chunks: []string{"a", "b", "c"}})

	n := 0
	_, err := a.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}}, ChatContext{}, func(string) error {
		n++
		return gone
	})
	assert.ErrorIs(t, err, gone)
	assert.Equal(t, 1, n)
}

func TestLookupLocalName(t *testing.T) {
	tests := map[string]string{
		"Shinkafa": "Rice",
		"iresi":    "Rice",
		" Doya ":   "Yam",
		"Tumatur":  "Tomatoes",
		"yam":      "Yam",
	}
	for query, want := range tests {
		got, ok := LookupLocalName(query)
		require.True(t, ok, query)
		assert.Equal(t, want, got, query)
	}

	_, ok := LookupLocalName("something starchy")
	assert.False(t, ok)
}

func TestTranslateGroceryName(t *testing.T) {
	f := &fakeModels{reply: "Yam.\n"}
	a := newTestAssistant(f)

	name, err := a.TranslateGroceryName(context.Background(), "Shinkafa")
	require.NoError(t, err)
	assert.Equal(t, "Rice", name)
	assert.Zero(t, f.calls)

	name, err = a.TranslateGroceryName(context.Background(), "i need something starchy")
	require.NoError(t, err)
	assert.Equal(t, "Yam", name)
	assert.Equal(t, 1, f.calls)
	require.NotNil(t, f.gotConfig.SystemInstruction)
	assert.Contains(t, f.gotConfig.SystemInstruction.Parts[0].Text, "Osikapa")

	_, err = a.TranslateGroceryName(context.Background(), "  ")
	assert.Error(t, err)
}
