package audit

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/abuobaidahamim/Unify/internal/apperror"
)

// recentLimit is the number of entries shown on the dashboard.
const recentLimit = 10

// Service records and lists account activity.
type Service interface {
	// Record logs an action for userID. Failures are logged, not returned.
	Record(ctx context.Context, userID, action, ip string)

	// Recent returns the user's latest entries, newest first.
	Recent(ctx context.Context, userID string) ([]Entry, error)
}

type service struct {
	repo  Repository
	clock clockwork.Clock
}

// NewService creates a Service. A nil clock uses the real one.
func NewService(repo Repository, clock clockwork.Clock) Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &service{repo: repo, clock: clock}
}

func (s *service) Record(ctx context.Context, userID, action, ip string) {
	if userID == "" || action == "" {
		return
	}
	entry := &Entry{
		UserID:    userID,
		Action:    action,
		IP:        ip,
		CreatedAt: s.clock.Now().UTC(),
	}
	if err := s.repo.Log(ctx, entry); err != nil {
		slog.Error("failed to write activity entry",
			slog.String("uid", userID),
			slog.String("action", action),
			slog.Any("error", err),
		)
	}
}

func (s *service) Recent(ctx context.Context, userID string) ([]Entry, error) {
	if userID == "" {
		return nil, apperror.NewBadRequest("user ID is required")
	}
	entries, err := s.repo.ListByUser(ctx, userID, recentLimit)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("listing activity: %w", err))
	}
	return entries, nil
}
