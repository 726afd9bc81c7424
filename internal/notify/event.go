// Package notify provides best-effort outbound notifications via a
// Kafka-backed outbox. Producers publish typed events; a separate consumer
// process resolves them into emails and delivers them. Delivery is decoupled
// from the transactions that trigger it: a lost email never rolls back a
// claim, a signup, or a promotion.
package notify

// EventType identifies the notification an event should produce.
type EventType string

const (
	EventDonationClaimed EventType = "donation.claimed"
	EventDonationCreated EventType = "donation.created"
	EventUserWelcomed    EventType = "user.welcomed"
	EventAdminPromoted   EventType = "user.promoted"
	EventWeeklyDigest    EventType = "digest.weekly"
)

// Event is the canonical schema for messages on the notify-outbox topic.
// Only the fields relevant to the event's type are set; the consumer
// re-reads authoritative record state from the store before composing an
// email, so payloads carry identifiers plus display hints, never state the
// store already owns.
//
// JSON example:
//
//	{
//	  "id":   "550e8400-e29b-41d4-a716-446655440000",
//	  "type": "donation.claimed",
//	  "donation_id": "7c9e6679-7425-40de-944b-e07fc1f90ae7"
//	}
type Event struct {
	// ID is a producer-generated UUID used for correlation. The consumer
	// logs it alongside the delivery outcome so duplicates can be detected
	// when replaying a partition.
	ID string `json:"id"`

	Type EventType `json:"type"`

	DonationID string `json:"donation_id,omitempty"`
	UserID     string `json:"user_id,omitempty"`
	UserName   string `json:"user_name,omitempty"`
	UserEmail  string `json:"user_email,omitempty"`

	// Display hints for donation.created, matching what the listing showed
	// at publish time.
	FoodType string `json:"food_type,omitempty"`
	Quantity string `json:"quantity,omitempty"`
	Location string `json:"location,omitempty"`
}
