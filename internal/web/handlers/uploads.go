package handlers

import (
	"errors"
	"log"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/foodbridge/foodbridge/internal/imaging"
)

// maxUploadBytes caps the multipart body for donation photos.
const maxUploadBytes = 10 << 20

// UploadImage handles POST /api/uploads. The image is re-encoded server-side
// so only processed JPEGs ever land on disk, then served back by URL for use
// as a donation's image_url.
func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		jsonError(w, "Image too large or malformed upload", http.StatusBadRequest)
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		jsonError(w, "An image file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	processed, err := imaging.Process(file)
	if err != nil {
		if errors.Is(err, imaging.ErrUnsupportedFormat) {
			jsonError(w, "Only JPEG and PNG images are accepted", http.StatusBadRequest)
			return
		}
		log.Printf("Image processing failed: %v", err)
		jsonError(w, "Could not process image", http.StatusBadRequest)
		return
	}

	if err := os.MkdirAll(h.cfg.Uploads.Dir, 0o755); err != nil {
		log.Printf("Error creating uploads dir: %v", err)
		jsonError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	name := uuid.New().String() + ".jpg"
	if err := os.WriteFile(filepath.Join(h.cfg.Uploads.Dir, name), processed, 0o644); err != nil {
		log.Printf("Error writing upload: %v", err)
		jsonError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	jsonResponse(w, map[string]string{"image_url": "/uploads/" + name})
}
