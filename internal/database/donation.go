package database

import (
	"context"
	"database/sql"

	"github.com/foodbridge/foodbridge/pkg/models"
)

// donationColumns is the SELECT column list for donation queries.
const donationColumns = `id, owner_id, food_type, quantity, description, location, expiry_date, image_url, status, created_at`

func scanDonation(row interface{ Scan(...interface{}) error }) (*models.Donation, error) {
	d := &models.Donation{}
	err := row.Scan(
		&d.ID, &d.OwnerID, &d.FoodType, &d.Quantity, &d.Description,
		&d.Location, &d.ExpiryDate, &d.ImageURL, &d.Status, &d.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return d, err
}

// CreateDonation inserts a new donation.
func (db *DB) CreateDonation(ctx context.Context, d *models.Donation) error {
	const q = `INSERT INTO donations (id, owner_id, food_type, quantity, description, location, expiry_date, image_url, status, created_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := db.conn.ExecContext(ctx, q,
		d.ID, d.OwnerID, d.FoodType, d.Quantity, d.Description,
		d.Location, d.ExpiryDate, d.ImageURL, d.Status, d.CreatedAt,
	)
	return err
}

// GetDonation returns a donation by ID.
func (db *DB) GetDonation(ctx context.Context, id string) (*models.Donation, error) {
	q := `SELECT ` + donationColumns + ` FROM donations WHERE id = ?`
	return scanDonation(db.conn.QueryRowContext(ctx, q, id))
}

// UpdateDonation rewrites a donation's editable fields. The statement matches
// on both id and owner_id, so a caller who does not own the row updates
// nothing. It reports whether a row was modified. Status is never written
// here; the claim transition is the only status mutation.
func (db *DB) UpdateDonation(ctx context.Context, ownerID string, d *models.Donation) (bool, error) {
	const q = `UPDATE donations SET food_type = ?, quantity = ?, description = ?,
	           location = ?, expiry_date = ?, image_url = ?
	           WHERE id = ? AND owner_id = ?`
	res, err := db.conn.ExecContext(ctx, q,
		d.FoodType, d.Quantity, d.Description, d.Location, d.ExpiryDate, d.ImageURL,
		d.ID, ownerID,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// DeleteDonation removes a donation owned by ownerID. It reports whether a
// row was deleted.
func (db *DB) DeleteDonation(ctx context.Context, ownerID, id string) (bool, error) {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM donations WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ClaimDonation performs the one-way available -> claimed transition as a
// single conditional write. The WHERE clause carries the entire contract:
// the row must exist, still be available, and belong to someone other than
// the claimer. It reports whether the transition happened; zero rows means
// the donation was already claimed, missing, or the claimer's own listing.
func (db *DB) ClaimDonation(ctx context.Context, claimerID, id string) (bool, error) {
	const q = `UPDATE donations SET status = ?
	           WHERE id = ? AND status = ? AND owner_id != ?`
	res, err := db.conn.ExecContext(ctx, q,
		models.DonationStatusClaimed, id, models.DonationStatusAvailable, claimerID,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ListAvailableDonations returns all available donations, newest first.
// If excludeOwnerID is non-empty, that owner's listings are omitted (the
// claim-browsing view); the public listing passes "".
func (db *DB) ListAvailableDonations(ctx context.Context, excludeOwnerID string) ([]models.Donation, error) {
	if excludeOwnerID != "" {
		q := `SELECT ` + donationColumns + ` FROM donations
		      WHERE status = ? AND owner_id != ? ORDER BY created_at DESC`
		return db.queryDonations(ctx, q, models.DonationStatusAvailable, excludeOwnerID)
	}
	q := `SELECT ` + donationColumns + ` FROM donations WHERE status = ? ORDER BY created_at DESC`
	return db.queryDonations(ctx, q, models.DonationStatusAvailable)
}

// ListDonationsByOwner returns all of one owner's donations, any status,
// newest first.
func (db *DB) ListDonationsByOwner(ctx context.Context, ownerID string) ([]models.Donation, error) {
	q := `SELECT ` + donationColumns + ` FROM donations WHERE owner_id = ? ORDER BY created_at DESC`
	return db.queryDonations(ctx, q, ownerID)
}

func (db *DB) queryDonations(ctx context.Context, query string, args ...interface{}) ([]models.Donation, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var donations []models.Donation
	for rows.Next() {
		var d models.Donation
		if err := rows.Scan(
			&d.ID, &d.OwnerID, &d.FoodType, &d.Quantity, &d.Description,
			&d.Location, &d.ExpiryDate, &d.ImageURL, &d.Status, &d.CreatedAt,
		); err != nil {
			return nil, err
		}
		donations = append(donations, d)
	}
	return donations, rows.Err()
}
