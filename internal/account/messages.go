package account

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"roastradar/internal/apperr"
	"roastradar/internal/models"
)

func newMessageID() string {
	return uuid.New().String()
}

// AcceptingMessages returns the account's current acceptance flag.
func (s *Service) AcceptingMessages(ctx context.Context, userID string) (bool, error) {
	user, err := s.store.FindByID(ctx, userID)
	if err != nil {
		return false, apperr.Wrap(apperr.Internal, "error retrieving account", err)
	}
	if user == nil {
		return false, apperr.New(apperr.NotFound, "user not found")
	}
	return user.IsAcceptingMessages, nil
}

// SetAcceptingMessages persists the acceptance flag and returns the new value.
func (s *Service) SetAcceptingMessages(ctx context.Context, userID string, accepting bool) (bool, error) {
	user, err := s.store.SetAcceptingMessages(ctx, userID, accepting)
	if err != nil {
		return false, apperr.Wrap(apperr.Internal, "error updating acceptance status", err)
	}
	if user == nil {
		return false, apperr.New(apperr.NotFound, "user not found")
	}
	return user.IsAcceptingMessages, nil
}

// SendMessage appends an anonymous message to the target account. The target
// is keyed only by username; no authentication is involved.
func (s *Service) SendMessage(ctx context.Context, username, content string) error {
	user, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "error retrieving account", err)
	}
	if user == nil {
		return apperr.New(apperr.NotFound, "user not found")
	}
	if !user.IsAcceptingMessages {
		return apperr.New(apperr.Forbidden, "user is not accepting messages")
	}

	msg := models.Message{
		ID:        s.newID(),
		Content:   content,
		CreatedAt: s.now(),
	}
	if err := s.store.AppendMessage(ctx, user.ID.Hex(), msg); err != nil {
		return apperr.Wrap(apperr.Internal, "error saving message", err)
	}
	return nil
}

// Messages returns the owner's messages newest first. Ties on the creation
// timestamp keep their insertion order, so the sort happens here with a
// stable sort rather than being delegated to the storage engine.
func (s *Service) Messages(ctx context.Context, userID string) ([]models.Message, error) {
	user, err := s.store.FindByID(ctx, userID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "error retrieving account", err)
	}
	if user == nil {
		return nil, apperr.New(apperr.NotFound, "user not found")
	}

	msgs := make([]models.Message, len(user.Messages))
	copy(msgs, user.Messages)
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].CreatedAt.After(msgs[j].CreatedAt)
	})
	return msgs, nil
}

// DeleteMessage removes one of the owner's messages. Deleting a message that
// does not exist, or was already deleted, is reported as not found.
func (s *Service) DeleteMessage(ctx context.Context, userID, messageID string) error {
	removed, err := s.store.RemoveMessage(ctx, userID, messageID)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "error deleting message", err)
	}
	if !removed {
		return apperr.New(apperr.NotFound, "message not found or already deleted")
	}
	return nil
}
