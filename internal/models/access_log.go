package models

import "time"

// Failure reasons recorded on unsuccessful redemption attempts.
const (
	AccessFailureRevoked     = "revoked"
	AccessFailureExpired     = "expired"
	AccessFailureExhausted   = "exhausted"
	AccessFailureBadPassword = "bad-password"
	AccessFailureRateLimited = "rate-limited"
)

// AccessRecord is an append-only entry describing one redemption attempt.
type AccessRecord struct {
	ID            string    `db:"id" json:"id"`
	LinkID        string    `db:"link_id" json:"link_id"`
	AccessedAt    time.Time `db:"accessed_at" json:"accessed_at"`
	IPAddress     string    `db:"ip_address" json:"ip_address"`
	UserAgent     string    `db:"user_agent" json:"user_agent"`
	Success       bool      `db:"success" json:"success"`
	FailureReason *string   `db:"failure_reason" json:"failure_reason,omitempty"`
}

// RequestContext carries caller details recorded with each attempt.
type RequestContext struct {
	IPAddress string
	UserAgent string
}
