package notify

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/foodbridge/foodbridge/pkg/models"
)

// Store is the narrow read-only view of the record store the composer needs.
// The consumer re-reads record state here rather than trusting event
// payloads; the store owns authoritative state.
type Store interface {
	GetDonation(ctx context.Context, id string) (*models.Donation, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
	ListDonationsByOwner(ctx context.Context, ownerID string) ([]models.Donation, error)
}

// Composer resolves events into ready-to-send emails.
type Composer struct {
	store Store

	// platformEmail receives new-donation notices (the coordinators'
	// shared inbox, not a per-user address).
	platformEmail string
}

// NewComposer creates a Composer backed by the given store.
func NewComposer(store Store, platformEmail string) *Composer {
	return &Composer{store: store, platformEmail: platformEmail}
}

// Compose builds the email for ev. It returns (nil, nil) when the event
// should be skipped without error: the referenced record is gone, or a
// digest has nothing to report. An error means composition should be
// retried (transient store failure) or the event is malformed.
func (c *Composer) Compose(ctx context.Context, ev Event) (*Email, error) {
	switch ev.Type {
	case EventDonationClaimed:
		return c.donationClaimed(ctx, ev)
	case EventDonationCreated:
		return c.donationCreated(ev)
	case EventUserWelcomed:
		return c.userWelcomed(ev)
	case EventAdminPromoted:
		return c.adminPromoted(ctx, ev)
	case EventWeeklyDigest:
		return c.weeklyDigest(ctx, ev)
	default:
		return nil, fmt.Errorf("unknown event type %q", ev.Type)
	}
}

func (c *Composer) donationClaimed(ctx context.Context, ev Event) (*Email, error) {
	donation, err := c.store.GetDonation(ctx, ev.DonationID)
	if err != nil {
		return nil, fmt.Errorf("get donation: %w", err)
	}
	if donation == nil {
		// Deleted between claim and delivery; nothing to announce.
		return nil, nil
	}

	donor, err := c.store.GetUserByID(ctx, donation.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("get donor: %w", err)
	}
	if donor == nil {
		return nil, nil
	}

	donorName := "there"
	if profile, err := c.store.GetProfile(ctx, donation.OwnerID); err == nil && profile != nil && profile.FullName != "" {
		donorName = profile.FullName
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<p>Hi %s,</p>", html.EscapeString(donorName))
	b.WriteString("<p>Great news — your donation has been claimed by someone in need!</p>")
	b.WriteString("<ul>")
	fmt.Fprintf(&b, "<li><strong>Food type:</strong> %s</li>", html.EscapeString(donation.FoodType))
	fmt.Fprintf(&b, "<li><strong>Quantity:</strong> %s</li>", html.EscapeString(donation.Quantity))
	fmt.Fprintf(&b, "<li><strong>Location:</strong> %s</li>", html.EscapeString(donation.Location))
	if donation.Description != "" {
		fmt.Fprintf(&b, "<li><strong>Description:</strong> %s</li>", html.EscapeString(donation.Description))
	}
	b.WriteString("</ul>")
	b.WriteString("<p>Thank you for helping reduce food waste in your community.<br>The FoodBridge Team</p>")

	return &Email{
		To:      donor.Email,
		Subject: "Your donation has been claimed!",
		HTML:    b.String(),
	}, nil
}

func (c *Composer) donationCreated(ev Event) (*Email, error) {
	if c.platformEmail == "" {
		return nil, nil
	}

	var b strings.Builder
	b.WriteString("<p>A new donation has been posted on FoodBridge:</p>")
	b.WriteString("<ul>")
	fmt.Fprintf(&b, "<li><strong>Food type:</strong> %s</li>", html.EscapeString(ev.FoodType))
	fmt.Fprintf(&b, "<li><strong>Quantity:</strong> %s</li>", html.EscapeString(ev.Quantity))
	fmt.Fprintf(&b, "<li><strong>Location:</strong> %s</li>", html.EscapeString(ev.Location))
	b.WriteString("</ul>")

	return &Email{
		To:      c.platformEmail,
		Subject: "New food donation posted",
		HTML:    b.String(),
	}, nil
}

func (c *Composer) userWelcomed(ev Event) (*Email, error) {
	if ev.UserEmail == "" {
		return nil, fmt.Errorf("user.welcomed event %s has no email", ev.ID)
	}

	name := ev.UserName
	if name == "" {
		name = "there"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<p>Hi %s,</p>", html.EscapeString(name))
	b.WriteString("<p>Welcome to FoodBridge! List surplus food for neighbours in need, or browse what's available near you.</p>")
	b.WriteString("<p>The FoodBridge Team</p>")

	return &Email{
		To:      ev.UserEmail,
		Subject: "Welcome to FoodBridge",
		HTML:    b.String(),
	}, nil
}

func (c *Composer) adminPromoted(ctx context.Context, ev Event) (*Email, error) {
	user, err := c.store.GetUserByID(ctx, ev.UserID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, nil
	}

	name := "there"
	if profile, err := c.store.GetProfile(ctx, ev.UserID); err == nil && profile != nil && profile.FullName != "" {
		name = profile.FullName
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<p>Congratulations %s,</p>", html.EscapeString(name))
	b.WriteString("<p>You've been promoted to admin on FoodBridge. You can now manage the donation catalog and promote other users.</p>")
	b.WriteString("<p>The FoodBridge Team</p>")

	return &Email{
		To:      user.Email,
		Subject: "You've been promoted to admin",
		HTML:    b.String(),
	}, nil
}

func (c *Composer) weeklyDigest(ctx context.Context, ev Event) (*Email, error) {
	user, err := c.store.GetUserByID(ctx, ev.UserID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, nil
	}

	donations, err := c.store.ListDonationsByOwner(ctx, ev.UserID)
	if err != nil {
		return nil, fmt.Errorf("list donations: %w", err)
	}
	if len(donations) == 0 {
		return nil, nil
	}

	weekAgo := time.Now().AddDate(0, 0, -7)
	var total, available, claimed, thisWeek int
	var recent []models.Donation
	for _, d := range donations {
		total++
		switch d.Status {
		case models.DonationStatusAvailable:
			available++
		case models.DonationStatusClaimed:
			claimed++
		}
		if d.CreatedAt.After(weekAgo) {
			thisWeek++
			if len(recent) < 5 {
				recent = append(recent, d)
			}
		}
	}

	// Quiet weeks get no email.
	if thisWeek == 0 {
		return nil, nil
	}

	name := "there"
	if profile, err := c.store.GetProfile(ctx, ev.UserID); err == nil && profile != nil && profile.FullName != "" {
		name = profile.FullName
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<p>Hi %s, here's your week on FoodBridge:</p>", html.EscapeString(name))
	fmt.Fprintf(&b, "<p>%d donation(s) posted this week. All time: %d posted, %d claimed, %d still available.</p>",
		thisWeek, total, claimed, available)
	b.WriteString("<ul>")
	for _, d := range recent {
		fmt.Fprintf(&b, "<li>%s — %s (%s) [%s]</li>",
			html.EscapeString(d.FoodType), html.EscapeString(d.Quantity),
			html.EscapeString(d.Location), d.Status)
	}
	b.WriteString("</ul>")
	b.WriteString("<p>Thanks for fighting food waste with us.<br>The FoodBridge Team</p>")

	return &Email{
		To:      user.Email,
		Subject: "Your weekly FoodBridge digest",
		HTML:    b.String(),
	}, nil
}
