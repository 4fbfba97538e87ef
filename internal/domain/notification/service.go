package notification

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lazone/lazone-api/internal/pkg/logger"
)

// Service handles notification logic
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates notification service
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Create creates a notification
func (s *Service) Create(ctx context.Context, userID uuid.UUID, notifType Type, actorID, entityID *uuid.UUID) (*Notification, error) {
	title, body := copyFor(notifType)
	n := &Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      notifType,
		ActorID:   actorID,
		EntityID:  entityID,
		Title:     title,
		IsRead:    false,
		CreatedAt: s.now(),
	}

	if body != "" {
		n.Body = sql.NullString{String: body, Valid: true}
	}

	if err := s.repo.Create(ctx, n); err != nil {
		return nil, err
	}

	return n, nil
}

// Notify creates a notification without surfacing failures to the caller.
func (s *Service) Notify(ctx context.Context, userID uuid.UUID, notifType Type, actorID, entityID *uuid.UUID) {
	if _, err := s.Create(ctx, userID, notifType, actorID, entityID); err != nil {
		logger.FromContext(ctx).Warn().
			Err(err).
			Str("user_id", userID.String()).
			Str("type", string(notifType)).
			Msg("notification delivery failed")
	}
}

// Inbox returns one page of the user's notifications together with the unread total.
func (s *Service) Inbox(ctx context.Context, userID uuid.UUID, page Page) (*Inbox, error) {
	items, err := s.repo.ListByUser(ctx, userID, page)
	if err != nil {
		return nil, fmt.Errorf("%w: list: %w", ErrStorage, err)
	}
	unread, err := s.repo.CountUnreadByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: count unread: %w", ErrStorage, err)
	}
	return &Inbox{Items: items, Unread: unread, Page: page}, nil
}

// UnreadCount returns how many notifications the user has not read yet.
func (s *Service) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	n, err := s.repo.CountUnreadByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("%w: count unread: %w", ErrStorage, err)
	}
	return n, nil
}

// MarkAsRead marks one of the user's notifications as read.
// Marking an already read notification again succeeds.
func (s *Service) MarkAsRead(ctx context.Context, userID, id uuid.UUID) error {
	ok, err := s.repo.MarkAsRead(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("%w: mark read: %w", ErrStorage, err)
	}
	if !ok {
		return ErrNotificationNotFound
	}
	return nil
}

// MarkAllAsRead marks every unread notification as read and returns how many changed.
func (s *Service) MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	n, err := s.repo.MarkAllAsRead(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("%w: mark all read: %w", ErrStorage, err)
	}
	return n, nil
}
