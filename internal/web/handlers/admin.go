package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/foodbridge/foodbridge/internal/notify"
	"github.com/foodbridge/foodbridge/internal/roles"
)

// AdminPromote handles POST /api/admin/promote. The promoting user's admin
// role is re-checked inside the role service, not just by the route guard.
func (h *Handler) AdminPromote(w http.ResponseWriter, r *http.Request) {
	actingID, _ := UserIDFromContext(r.Context())

	var req struct {
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		jsonError(w, "user_id is required", http.StatusBadRequest)
		return
	}

	if err := h.roles.Promote(r.Context(), actingID, req.UserID); err != nil {
		switch {
		case errors.Is(err, roles.ErrNotAdmin):
			jsonError(w, "Forbidden", http.StatusForbidden)
		case errors.Is(err, roles.ErrUserNotFound):
			jsonError(w, "User not found", http.StatusNotFound)
		default:
			log.Printf("Promote failed for %s: %v", req.UserID, err)
			jsonError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	jsonResponse(w, map[string]string{"status": "promoted"})
}

// AdminDigest handles POST /api/admin/digest. It enqueues a weekly digest
// event per user and returns immediately; composition and the quiet-week
// skip happen in the consumer.
func (h *Handler) AdminDigest(w http.ResponseWriter, r *http.Request) {
	userIDs, err := h.db.ListUserIDs(r.Context())
	if err != nil {
		log.Printf("Digest enqueue failed: %v", err)
		jsonError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	go func(ids []string) {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		for _, id := range ids {
			ev := notify.Event{
				ID:     uuid.New().String(),
				Type:   notify.EventWeeklyDigest,
				UserID: id,
			}
			if err := h.dispatcher.Dispatch(ctx, ev); err != nil {
				log.Printf("Failed to enqueue digest for %s: %v", id, err)
			}
		}
	}(userIDs)

	w.WriteHeader(http.StatusAccepted)
	jsonResponse(w, map[string]interface{}{"queued": len(userIDs)})
}
