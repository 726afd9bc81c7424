// Package roles resolves admin capability and gates the one privileged
// mutation, promote-to-admin. The admin check lives here, next to the role
// write, so no HTTP-layer check is ever the only line of defense.
package roles

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/foodbridge/foodbridge/internal/database"
	"github.com/foodbridge/foodbridge/internal/notify"
	"github.com/foodbridge/foodbridge/pkg/models"
)

var (
	// ErrNotAdmin is returned when the acting user lacks the admin role.
	ErrNotAdmin = errors.New("admin role required")

	// ErrUserNotFound is returned when the promotion target does not exist.
	ErrUserNotFound = errors.New("user not found")
)

const dispatchTimeout = 10 * time.Second

// Service answers role queries and performs promotions.
type Service struct {
	db         *database.DB
	dispatcher notify.Dispatcher
}

// New creates a role service.
func New(db *database.DB, dispatcher notify.Dispatcher) *Service {
	return &Service{db: db, dispatcher: dispatcher}
}

// IsAdmin reports whether userID holds the admin role. True iff at least
// one assignment row exists; duplicates (which the store prevents anyway)
// would not change the answer.
func (s *Service) IsAdmin(ctx context.Context, userID string) (bool, error) {
	if userID == "" {
		return false, nil
	}
	return s.db.HasRole(ctx, userID, models.RoleAdmin)
}

// Promote grants the admin role to targetUserID. It re-checks the acting
// user's admin status here regardless of any check the caller performed;
// the HTTP layer is not a trust boundary. Promoting an existing admin is a
// no-op that succeeds without a second notification.
func (s *Service) Promote(ctx context.Context, actingUserID, targetUserID string) error {
	isAdmin, err := s.IsAdmin(ctx, actingUserID)
	if err != nil {
		return fmt.Errorf("check acting user role: %w", err)
	}
	if !isAdmin {
		return ErrNotAdmin
	}

	target, err := s.db.GetUserByID(ctx, targetUserID)
	if err != nil {
		return fmt.Errorf("lookup target user: %w", err)
	}
	if target == nil {
		return ErrUserNotFound
	}

	already, err := s.db.HasRole(ctx, targetUserID, models.RoleAdmin)
	if err != nil {
		return fmt.Errorf("check target role: %w", err)
	}

	if err := s.db.AddRole(ctx, targetUserID, models.RoleAdmin); err != nil {
		return fmt.Errorf("add role: %w", err)
	}

	if !already {
		s.dispatch(notify.Event{
			ID:     uuid.New().String(),
			Type:   notify.EventAdminPromoted,
			UserID: targetUserID,
		})
	}

	return nil
}

// dispatch publishes ev detached from the request; failures are logged and
// swallowed, matching the promotion email's best-effort contract.
func (s *Service) dispatch(ev notify.Event) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		defer cancel()
		if err := s.dispatcher.Dispatch(ctx, ev); err != nil {
			log.Printf("roles: failed to publish %s event for %s: %v", ev.Type, ev.UserID, err)
		}
	}()
}
