package donations

import "errors"

var (
	// ErrUnauthenticated is returned when an operation requires an actor
	// identity and none was supplied.
	ErrUnauthenticated = errors.New("not authenticated")

	// ErrNotFoundOrForbidden is returned when a donation does not exist or
	// does not belong to the caller. The two cases are deliberately
	// indistinguishable so callers cannot probe for other users' rows.
	ErrNotFoundOrForbidden = errors.New("donation not found")

	// ErrNotAvailable is returned when a claim loses the race, targets an
	// already-claimed or missing donation, or targets the claimer's own
	// listing. Rendered to users as "no longer available".
	ErrNotAvailable = errors.New("donation is no longer available")
)
