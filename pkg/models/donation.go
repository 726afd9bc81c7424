package models

import "time"

// DonationStatus represents the lifecycle state of a donation.
// The only transition is available -> claimed; it never reverses.
type DonationStatus string

const (
	DonationStatusAvailable DonationStatus = "available"
	DonationStatusClaimed   DonationStatus = "claimed"
)

// Donation is one listed offer of food or relief goods.
type Donation struct {
	ID          string         `json:"id"`
	OwnerID     string         `json:"owner_id"`
	FoodType    string         `json:"food_type"`
	Quantity    string         `json:"quantity"`
	Description string         `json:"description,omitempty"`
	Location    string         `json:"location"`
	ExpiryDate  *time.Time     `json:"expiry_date,omitempty"`
	ImageURL    string         `json:"image_url,omitempty"`
	Status      DonationStatus `json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
}
