package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/drstein77/grocerystore/internal/assistant"
)

// Chat streams the assistant's reply, giving it the user's cart and dietary
// preferences as context.
func (s *Storage) Chat(ctx context.Context, userID string, history []assistant.Message, onChunk func(string) error) (string, error) {
	if s.ai == nil {
		return "", fmt.Errorf("chat: %w", ErrUnavailable)
	}

	var cc assistant.ChatContext
	for _, it := range s.Cart(userID).Items {
		cc.CartItems = append(cc.CartItems, assistant.CartLine{Name: it.Name, Quantity: it.Quantity})
	}
	u, err := s.keeper.GetUser(ctx, userID)
	if err != nil {
		return "", err
	}
	cc.Preferences = u.DietaryPreferences

	reply, err := s.ai.Chat(ctx, history, cc, onChunk)
	switch {
	case err == nil:
		return reply, nil
	case errors.Is(err, assistant.ErrEmptyConversation), errors.Is(err, assistant.ErrLastNotUser):
		return "", invalid(err)
	default:
		return reply, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
}
