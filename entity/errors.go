package entity

import "errors"

// Error taxonomy for the mission lifecycle. Callers match with errors.Is;
// wrapped causes stay attached via fmt.Errorf("...: %w", ...).
var (
	// ErrInvalidArgument marks a malformed mission definition: unknown
	// action type or empty target reference.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound marks a reference to an unknown mission or user.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyCompleted fires when the (user, mission) completion
	// already exists. Exactly one of any set of racing callers avoids it.
	ErrAlreadyCompleted = errors.New("mission already completed")

	// ErrProfileNotLinked means the user has no Instagram handle on file,
	// so verification cannot even be attempted.
	ErrProfileNotLinked = errors.New("instagram profile not linked")

	// ErrVerificationUnavailable means the profile-data provider could not
	// render a judgement (outage, rate limit, auth failure, timeout).
	// Distinct from a definitive "action not performed" result: an outage
	// must never be recorded as a failed mission attempt.
	ErrVerificationUnavailable = errors.New("verification unavailable")

	// ErrIssuanceFailed means the coupon provider failed after the
	// completion was already recorded. The completion is never rolled back.
	ErrIssuanceFailed = errors.New("discount code issuance failed")
)
