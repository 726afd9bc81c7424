package donations

import (
	"fmt"
	"strings"
	"time"
)

// Field length bounds for donation payloads.
const (
	maxFoodTypeLen    = 100
	maxQuantityLen    = 50
	maxDescriptionLen = 500
	maxLocationLen    = 200
)

// Input is a donation payload as submitted by a donor, before validation.
type Input struct {
	FoodType    string     `json:"food_type"`
	Quantity    string     `json:"quantity"`
	Description string     `json:"description"`
	Location    string     `json:"location"`
	ExpiryDate  *time.Time `json:"expiry_date"`
	ImageURL    string     `json:"image_url"`
}

// ValidationError reports the first field that failed validation. Callers
// surface Message to the actor verbatim.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks field presence and length bounds, returning a normalized
// copy of the input (strings trimmed) or the FIRST violation found. The
// same rules apply to create and update. It never touches storage.
func Validate(in Input) (Input, *ValidationError) {
	in.FoodType = strings.TrimSpace(in.FoodType)
	in.Quantity = strings.TrimSpace(in.Quantity)
	in.Description = strings.TrimSpace(in.Description)
	in.Location = strings.TrimSpace(in.Location)
	in.ImageURL = strings.TrimSpace(in.ImageURL)

	switch {
	case in.FoodType == "":
		return in, &ValidationError{Field: "food_type", Message: "Food type is required"}
	case len(in.FoodType) > maxFoodTypeLen:
		return in, &ValidationError{Field: "food_type", Message: fmt.Sprintf("Food type must be at most %d characters", maxFoodTypeLen)}
	case in.Quantity == "":
		return in, &ValidationError{Field: "quantity", Message: "Quantity is required"}
	case len(in.Quantity) > maxQuantityLen:
		return in, &ValidationError{Field: "quantity", Message: fmt.Sprintf("Quantity must be at most %d characters", maxQuantityLen)}
	case len(in.Description) > maxDescriptionLen:
		return in, &ValidationError{Field: "description", Message: fmt.Sprintf("Description must be at most %d characters", maxDescriptionLen)}
	case in.Location == "":
		return in, &ValidationError{Field: "location", Message: "Location is required"}
	case len(in.Location) > maxLocationLen:
		return in, &ValidationError{Field: "location", Message: fmt.Sprintf("Location must be at most %d characters", maxLocationLen)}
	}

	return in, nil
}
