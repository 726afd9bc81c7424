package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/foodbridge/foodbridge/config"
	"github.com/foodbridge/foodbridge/internal/auth"
	"github.com/foodbridge/foodbridge/internal/database"
	"github.com/foodbridge/foodbridge/internal/donations"
	"github.com/foodbridge/foodbridge/internal/notify"
	"github.com/foodbridge/foodbridge/internal/roles"
	"github.com/foodbridge/foodbridge/internal/token"
	"github.com/foodbridge/foodbridge/internal/web/handlers"
	"github.com/foodbridge/foodbridge/pkg/models"
)

// testServer spins up the full API stack backed by a temp SQLite file.
func testServer(t *testing.T) (*httptest.Server, *database.DB) {
	t.Helper()

	dir := t.TempDir()
	db, err := database.New(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{
		Server:  config.ServerConfig{Port: "0", Env: "test"},
		JWT:     config.JWTConfig{SigningKey: "test-signing-key", Issuer: "test", TTLSeconds: 3600},
		Uploads: config.UploadsConfig{Dir: filepath.Join(dir, "uploads")},
	}

	dispatcher := notify.LogDispatcher{}
	authService := auth.New(db, dispatcher)
	donationService := donations.New(db, dispatcher)
	roleService := roles.New(db, dispatcher)
	tokenService := token.New(cfg.JWT.SigningKey, cfg.JWT.Issuer)

	h := handlers.New(db, cfg, authService, donationService, roleService, tokenService, dispatcher)

	r := chi.NewRouter()
	r.Post("/api/signup", h.Signup)
	r.Post("/api/login", h.Login)
	r.Get("/api/donations", h.ListDonations)
	r.Group(func(r chi.Router) {
		r.Use(handlers.AuthMiddleware(tokenService))
		r.Get("/api/donations/browse", h.BrowseDonations)
		r.Get("/api/donations/mine", h.MyDonations)
		r.Post("/api/donations", h.CreateDonation)
		r.Put("/api/donations/{id}", h.UpdateDonation)
		r.Delete("/api/donations/{id}", h.DeleteDonation)
		r.Post("/api/donations/{id}/claim", h.ClaimDonation)
		r.Post("/api/uploads", h.UploadImage)
	})
	r.Group(func(r chi.Router) {
		r.Use(handlers.AuthMiddleware(tokenService))
		r.Use(handlers.AdminMiddleware(roleService))
		r.Post("/api/admin/promote", h.AdminPromote)
		r.Post("/api/admin/digest", h.AdminDigest)
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, db
}

// signup registers a user through the API and returns its id and token.
func signup(t *testing.T, srv *httptest.Server, email string) (id, token string) {
	t.Helper()

	body := fmt.Sprintf(`{"email":%q,"password":"hunter2secret","full_name":"Test User"}`, email)
	resp, err := http.Post(srv.URL+"/api/signup", "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("signup status = %d, want 201", resp.StatusCode)
	}

	var out struct {
		Token string `json:"token"`
		User  struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode signup response: %v", err)
	}
	if out.Token == "" || out.User.ID == "" {
		t.Fatal("signup response missing token or user id")
	}
	return out.User.ID, out.Token
}

// doJSON sends a JSON request with an optional bearer token.
func doJSON(t *testing.T, method, url, token, body string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(method, url, bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	return resp
}

func createDonation(t *testing.T, srv *httptest.Server, token string) *models.Donation {
	t.Helper()

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/donations", token,
		`{"food_type":"Rice","quantity":"10kg","location":"Nairobi"}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create donation status = %d, want 201", resp.StatusCode)
	}

	var d models.Donation
	if err := json.NewDecoder(resp.Body).Decode(&d); err != nil {
		t.Fatalf("decode donation: %v", err)
	}
	return &d
}

func TestSignupAndLogin(t *testing.T) {
	srv, _ := testServer(t)

	signup(t, srv, "amina@example.com")

	resp, err := http.Post(srv.URL+"/api/login", "application/json",
		bytes.NewBufferString(`{"email":"amina@example.com","password":"hunter2secret"}`))
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("login status = %d, want 200", resp.StatusCode)
	}

	bad, err := http.Post(srv.URL+"/api/login", "application/json",
		bytes.NewBufferString(`{"email":"amina@example.com","password":"wrong"}`))
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	defer bad.Body.Close()
	if bad.StatusCode != http.StatusUnauthorized {
		t.Errorf("bad login status = %d, want 401", bad.StatusCode)
	}
}

func TestSignup_DuplicateEmail(t *testing.T) {
	srv, _ := testServer(t)

	signup(t, srv, "amina@example.com")

	resp, err := http.Post(srv.URL+"/api/signup", "application/json",
		bytes.NewBufferString(`{"email":"amina@example.com","password":"hunter2secret"}`))
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("duplicate signup status = %d, want 409", resp.StatusCode)
	}
}

func TestSignup_ShortPassword(t *testing.T) {
	srv, _ := testServer(t)

	resp, err := http.Post(srv.URL+"/api/signup", "application/json",
		bytes.NewBufferString(`{"email":"amina@example.com","password":"short"}`))
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("short password status = %d, want 400", resp.StatusCode)
	}
}

func TestDonations_RequireAuth(t *testing.T) {
	srv, _ := testServer(t)

	for _, tc := range []struct {
		method, path string
	}{
		{http.MethodPost, "/api/donations"},
		{http.MethodGet, "/api/donations/mine"},
		{http.MethodPost, "/api/donations/some-id/claim"},
	} {
		resp := doJSON(t, tc.method, srv.URL+tc.path, "", `{}`)
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("%s %s without token = %d, want 401", tc.method, tc.path, resp.StatusCode)
		}
	}

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/donations", "not-a-real-token", `{}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("garbage token = %d, want 401", resp.StatusCode)
	}
}

func TestCreateDonation_ValidationError(t *testing.T) {
	srv, _ := testServer(t)
	_, tok := signup(t, srv, "amina@example.com")

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/donations", tok,
		`{"quantity":"10kg","location":"Nairobi"}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}

	var out struct {
		Field string `json:"field"`
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if out.Field != "food_type" {
		t.Errorf("field = %q, want food_type", out.Field)
	}
	if out.Error == "" {
		t.Error("error message is empty")
	}
}

func TestDonationListings(t *testing.T) {
	srv, _ := testServer(t)
	_, donorTok := signup(t, srv, "donor@example.com")
	_, otherTok := signup(t, srv, "other@example.com")

	d := createDonation(t, srv, donorTok)

	listDonations := func(path, tok string) []models.Donation {
		t.Helper()
		resp := doJSON(t, http.MethodGet, srv.URL+path, tok, "")
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("GET %s = %d, want 200", path, resp.StatusCode)
		}
		var items []models.Donation
		if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
			t.Fatalf("decode listing: %v", err)
		}
		return items
	}

	// Public listing shows the donation to anyone.
	public := listDonations("/api/donations", "")
	if len(public) != 1 || public[0].ID != d.ID {
		t.Errorf("public listing = %+v, want the created donation", public)
	}

	// Browse excludes the donor's own listing.
	if got := listDonations("/api/donations/browse", donorTok); len(got) != 0 {
		t.Errorf("donor browse has %d items, want 0", len(got))
	}
	if got := listDonations("/api/donations/browse", otherTok); len(got) != 1 {
		t.Errorf("other user browse has %d items, want 1", len(got))
	}

	// Mine shows only the donor's listings.
	if got := listDonations("/api/donations/mine", donorTok); len(got) != 1 {
		t.Errorf("donor mine has %d items, want 1", len(got))
	}
	if got := listDonations("/api/donations/mine", otherTok); len(got) != 0 {
		t.Errorf("other user mine has %d items, want 0", len(got))
	}
}

func TestClaimFlow(t *testing.T) {
	srv, _ := testServer(t)
	_, donorTok := signup(t, srv, "donor@example.com")
	_, claimerTok := signup(t, srv, "claimer@example.com")

	d := createDonation(t, srv, donorTok)
	claimURL := srv.URL + "/api/donations/" + d.ID + "/claim"

	// Self-claim is rejected as unavailable.
	resp := doJSON(t, http.MethodPost, claimURL, donorTok, "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("self-claim status = %d, want 409", resp.StatusCode)
	}

	// Another user claims it.
	resp = doJSON(t, http.MethodPost, claimURL, claimerTok, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("claim status = %d, want 200", resp.StatusCode)
	}
	var claimed models.Donation
	if err := json.NewDecoder(resp.Body).Decode(&claimed); err != nil {
		t.Fatalf("decode claimed donation: %v", err)
	}
	resp.Body.Close()
	if claimed.Status != models.DonationStatusClaimed {
		t.Errorf("status = %q, want claimed", claimed.Status)
	}

	// A second claim finds it gone.
	resp = doJSON(t, http.MethodPost, claimURL, claimerTok, "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("second claim status = %d, want 409", resp.StatusCode)
	}

	// Claiming a nonexistent donation is the same 409, not a 404 oracle.
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/donations/no-such-id/claim", claimerTok, "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("missing donation claim status = %d, want 409", resp.StatusCode)
	}
}

func TestUpdateAndDelete_OwnershipEnforced(t *testing.T) {
	srv, _ := testServer(t)
	_, donorTok := signup(t, srv, "donor@example.com")
	_, otherTok := signup(t, srv, "other@example.com")

	d := createDonation(t, srv, donorTok)
	body := `{"food_type":"Beans","quantity":"5kg","location":"Kisumu"}`

	// Non-owner update and delete both get the generic 403.
	resp := doJSON(t, http.MethodPut, srv.URL+"/api/donations/"+d.ID, otherTok, body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("non-owner update status = %d, want 403", resp.StatusCode)
	}
	resp = doJSON(t, http.MethodDelete, srv.URL+"/api/donations/"+d.ID, otherTok, "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("non-owner delete status = %d, want 403", resp.StatusCode)
	}

	// Owner update succeeds and returns the new state.
	resp = doJSON(t, http.MethodPut, srv.URL+"/api/donations/"+d.ID, donorTok, body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("owner update status = %d, want 200", resp.StatusCode)
	}
	var updated models.Donation
	if err := json.NewDecoder(resp.Body).Decode(&updated); err != nil {
		t.Fatalf("decode updated donation: %v", err)
	}
	resp.Body.Close()
	if updated.FoodType != "Beans" {
		t.Errorf("food_type = %q, want Beans", updated.FoodType)
	}

	// Owner delete succeeds.
	resp = doJSON(t, http.MethodDelete, srv.URL+"/api/donations/"+d.ID, donorTok, "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("owner delete status = %d, want 204", resp.StatusCode)
	}
}

func TestAdminPromote(t *testing.T) {
	srv, db := testServer(t)
	adminID, adminTok := signup(t, srv, "admin@example.com")
	targetID, targetTok := signup(t, srv, "target@example.com")

	// Bootstrap the first admin directly in the store.
	if err := db.AddRole(context.Background(), adminID, models.RoleAdmin); err != nil {
		t.Fatalf("seed admin role: %v", err)
	}

	// A regular user is turned away at the route guard.
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/admin/promote", targetTok,
		fmt.Sprintf(`{"user_id":%q}`, adminID))
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("non-admin promote status = %d, want 403", resp.StatusCode)
	}

	// The admin promotes the target.
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/admin/promote", adminTok,
		fmt.Sprintf(`{"user_id":%q}`, targetID))
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("promote status = %d, want 200", resp.StatusCode)
	}

	isAdmin, err := db.HasRole(context.Background(), targetID, models.RoleAdmin)
	if err != nil {
		t.Fatalf("check role: %v", err)
	}
	if !isAdmin {
		t.Error("target was not granted the admin role")
	}

	// Promoting a nonexistent user is a 404.
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/admin/promote", adminTok,
		`{"user_id":"no-such-user"}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("promote missing user status = %d, want 404", resp.StatusCode)
	}
}

func TestAdminDigest(t *testing.T) {
	srv, db := testServer(t)
	adminID, adminTok := signup(t, srv, "admin@example.com")
	signup(t, srv, "donor@example.com")

	if err := db.AddRole(context.Background(), adminID, models.RoleAdmin); err != nil {
		t.Fatalf("seed admin role: %v", err)
	}

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/admin/digest", adminTok, "")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("digest status = %d, want 202", resp.StatusCode)
	}

	var out struct {
		Queued int `json:"queued"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode digest response: %v", err)
	}
	if out.Queued != 2 {
		t.Errorf("queued = %d, want 2", out.Queued)
	}
}

func TestUploadImage(t *testing.T) {
	srv, _ := testServer(t)
	_, tok := signup(t, srv, "donor@example.com")

	var imgBuf bytes.Buffer
	if err := png.Encode(&imgBuf, image.NewRGBA(image.Rect(0, 0, 10, 10))); err != nil {
		t.Fatalf("encode test png: %v", err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", "photo.png")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(imgBuf.Bytes()); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	mw.Close()

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/uploads", &body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+tok)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("upload status = %d, want 201", resp.StatusCode)
	}

	var out struct {
		ImageURL string `json:"image_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode upload response: %v", err)
	}
	if out.ImageURL == "" {
		t.Error("image_url is empty")
	}
}

func TestUploadImage_RejectsNonImage(t *testing.T) {
	srv, _ := testServer(t)
	_, tok := signup(t, srv, "donor@example.com")

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", "notes.txt")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	fmt.Fprint(part, "plain text, not an image")
	mw.Close()

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/uploads", &body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+tok)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("non-image upload status = %d, want 400", resp.StatusCode)
	}
}
