// Package donations owns the donation lifecycle: validation, owner-scoped
// persistence, and the at-most-once claim transition with its notification
// side effects.
package donations

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/foodbridge/foodbridge/internal/database"
	"github.com/foodbridge/foodbridge/internal/notify"
	"github.com/foodbridge/foodbridge/pkg/models"
)

// dispatchTimeout bounds each best-effort notification publish. Dispatch
// runs detached from the request context: a caller's cancellation must not
// suppress an event for a mutation that already committed.
const dispatchTimeout = 10 * time.Second

// Service coordinates donation operations against the shared store.
type Service struct {
	db         *database.DB
	dispatcher notify.Dispatcher
}

// New creates a donation service.
func New(db *database.DB, dispatcher notify.Dispatcher) *Service {
	return &Service{db: db, dispatcher: dispatcher}
}

// Create validates and persists a new donation for ownerID. New donations
// are always available; status and created_at are server-assigned. On
// success a donation.created event is published best-effort.
func (s *Service) Create(ctx context.Context, ownerID string, in Input) (*models.Donation, error) {
	if ownerID == "" {
		return nil, ErrUnauthenticated
	}

	in, verr := Validate(in)
	if verr != nil {
		return nil, verr
	}

	d := &models.Donation{
		ID:          uuid.New().String(),
		OwnerID:     ownerID,
		FoodType:    in.FoodType,
		Quantity:    in.Quantity,
		Description: in.Description,
		Location:    in.Location,
		ExpiryDate:  in.ExpiryDate,
		ImageURL:    in.ImageURL,
		Status:      models.DonationStatusAvailable,
		CreatedAt:   time.Now(),
	}

	if err := s.db.CreateDonation(ctx, d); err != nil {
		return nil, fmt.Errorf("create donation: %w", err)
	}

	s.dispatch(notify.Event{
		ID:         uuid.New().String(),
		Type:       notify.EventDonationCreated,
		DonationID: d.ID,
		FoodType:   d.FoodType,
		Quantity:   d.Quantity,
		Location:   d.Location,
	})

	return d, nil
}

// Update validates and rewrites the editable fields of a donation owned by
// ownerID. The ownership check travels with the write: a non-owner (or a
// bad id) gets ErrNotFoundOrForbidden and the row is untouched. Status is
// never editable, so owners may still correct details after a claim.
func (s *Service) Update(ctx context.Context, ownerID, donationID string, in Input) (*models.Donation, error) {
	if ownerID == "" {
		return nil, ErrUnauthenticated
	}

	in, verr := Validate(in)
	if verr != nil {
		return nil, verr
	}

	d := &models.Donation{
		ID:          donationID,
		FoodType:    in.FoodType,
		Quantity:    in.Quantity,
		Description: in.Description,
		Location:    in.Location,
		ExpiryDate:  in.ExpiryDate,
		ImageURL:    in.ImageURL,
	}

	ok, err := s.db.UpdateDonation(ctx, ownerID, d)
	if err != nil {
		return nil, fmt.Errorf("update donation: %w", err)
	}
	if !ok {
		return nil, ErrNotFoundOrForbidden
	}

	updated, err := s.db.GetDonation(ctx, donationID)
	if err != nil {
		return nil, fmt.Errorf("reload donation: %w", err)
	}
	return updated, nil
}

// Delete removes a donation owned by ownerID, with the same ownership
// contract as Update.
func (s *Service) Delete(ctx context.Context, ownerID, donationID string) error {
	if ownerID == "" {
		return ErrUnauthenticated
	}

	ok, err := s.db.DeleteDonation(ctx, ownerID, donationID)
	if err != nil {
		return fmt.Errorf("delete donation: %w", err)
	}
	if !ok {
		return ErrNotFoundOrForbidden
	}
	return nil
}

// ListAvailable returns every available donation, newest first. A non-empty
// excludeOwnerID omits that owner's listings (the claim-browsing view); the
// public listing passes "". Each call queries the store fresh.
func (s *Service) ListAvailable(ctx context.Context, excludeOwnerID string) ([]models.Donation, error) {
	return s.db.ListAvailableDonations(ctx, excludeOwnerID)
}

// ListOwnedBy returns all of one owner's donations, any status, newest first.
func (s *Service) ListOwnedBy(ctx context.Context, ownerID string) ([]models.Donation, error) {
	if ownerID == "" {
		return nil, ErrUnauthenticated
	}
	return s.db.ListDonationsByOwner(ctx, ownerID)
}

// Claim attempts the available -> claimed transition for actorID. The
// transition is a single conditional write in the store; whichever of two
// concurrent claimers the store serializes first wins and the other gets
// ErrNotAvailable. Self-claims fail identically (the condition includes
// owner_id != actor).
//
// On success a donation.claimed event is published best-effort and the
// updated donation is returned so callers can drop it from availability
// views without re-querying.
func (s *Service) Claim(ctx context.Context, actorID, donationID string) (*models.Donation, error) {
	if actorID == "" {
		return nil, ErrUnauthenticated
	}

	ok, err := s.db.ClaimDonation(ctx, actorID, donationID)
	if err != nil {
		return nil, fmt.Errorf("claim donation: %w", err)
	}
	if !ok {
		return nil, ErrNotAvailable
	}

	s.dispatch(notify.Event{
		ID:         uuid.New().String(),
		Type:       notify.EventDonationClaimed,
		DonationID: donationID,
	})

	d, err := s.db.GetDonation(ctx, donationID)
	if err != nil {
		// The claim itself committed; report the new state we know.
		log.Printf("donations: claim committed but reload failed for %s: %v", donationID, err)
		return &models.Donation{ID: donationID, Status: models.DonationStatusClaimed}, nil
	}
	return d, nil
}

// dispatch publishes ev on a detached goroutine. Failures are logged and
// swallowed; notification delivery is never part of the transactional
// contract.
func (s *Service) dispatch(ev notify.Event) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		defer cancel()
		if err := s.dispatcher.Dispatch(ctx, ev); err != nil {
			log.Printf("donations: failed to publish %s event for %s: %v", ev.Type, ev.DonationID, err)
		}
	}()
}
