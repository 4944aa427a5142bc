package entity

// VerifyStatus is the outcome of one verification attempt for one mission.
type VerifyStatus string

const (
	// VerifyCompleted: completion recorded (or already on record after a
	// lost race) and a discount code is attached when Code is non-empty.
	VerifyCompleted VerifyStatus = "completed"
	// VerifyNotCompleted: the provider answered definitively that the
	// action was not performed. The mission stays offered.
	VerifyNotCompleted VerifyStatus = "not_completed"
	// VerifyUnavailable: the provider could not render a judgement.
	// Retryable; nothing was recorded.
	VerifyUnavailable VerifyStatus = "unavailable"
	// VerifyCodeFailed: completion and points stand, but the coupon
	// provider failed. Reported separately, never rolled back.
	VerifyCodeFailed VerifyStatus = "code_failed"
	// VerifyError: the store failed mid-protocol. Non-fatal, retryable.
	VerifyError VerifyStatus = "error"
)

// VerifyOutcome pairs a mission with the result of verifying it.
type VerifyOutcome struct {
	Mission *Mission     `json:"mission"`
	Status  VerifyStatus `json:"status"`
	Code    string       `json:"code,omitempty"`
}
