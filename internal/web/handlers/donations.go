package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/foodbridge/foodbridge/internal/donations"
	"github.com/foodbridge/foodbridge/pkg/models"
)

// ListDonations handles GET /api/donations, the public availability view.
func (h *Handler) ListDonations(w http.ResponseWriter, r *http.Request) {
	items, err := h.donations.ListAvailable(r.Context(), "")
	if err != nil {
		writeDonationError(w, err)
		return
	}
	if items == nil {
		items = []models.Donation{}
	}
	jsonResponse(w, items)
}

// BrowseDonations handles GET /api/donations/browse, the claim-browsing view.
// The caller's own listings are excluded.
func (h *Handler) BrowseDonations(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	items, err := h.donations.ListAvailable(r.Context(), userID)
	if err != nil {
		writeDonationError(w, err)
		return
	}
	if items == nil {
		items = []models.Donation{}
	}
	jsonResponse(w, items)
}

// MyDonations handles GET /api/donations/mine, all of the caller's listings
// in any status.
func (h *Handler) MyDonations(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	items, err := h.donations.ListOwnedBy(r.Context(), userID)
	if err != nil {
		writeDonationError(w, err)
		return
	}
	if items == nil {
		items = []models.Donation{}
	}
	jsonResponse(w, items)
}

// CreateDonation handles POST /api/donations.
func (h *Handler) CreateDonation(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	var in donations.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	d, err := h.donations.Create(r.Context(), userID, in)
	if err != nil {
		writeDonationError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	jsonResponse(w, d)
}

// UpdateDonation handles PUT /api/donations/{id}.
func (h *Handler) UpdateDonation(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	var in donations.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	d, err := h.donations.Update(r.Context(), userID, id, in)
	if err != nil {
		writeDonationError(w, err)
		return
	}
	jsonResponse(w, d)
}

// DeleteDonation handles DELETE /api/donations/{id}.
func (h *Handler) DeleteDonation(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	if err := h.donations.Delete(r.Context(), userID, id); err != nil {
		writeDonationError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClaimDonation handles POST /api/donations/{id}/claim. Exactly one caller
// wins a contested donation; everyone else gets 409.
func (h *Handler) ClaimDonation(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	d, err := h.donations.Claim(r.Context(), userID, id)
	if err != nil {
		writeDonationError(w, err)
		return
	}
	jsonResponse(w, d)
}
