package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
)

// LinkStatus is the derived lifecycle state of a share link.
type LinkStatus string

const (
	LinkStatusActive    LinkStatus = "ACTIVE"
	LinkStatusExhausted LinkStatus = "EXHAUSTED"
	LinkStatusExpired   LinkStatus = "EXPIRED"
	LinkStatusRevoked   LinkStatus = "REVOKED"
)

// ShareLink is a password-gated, time-boxed grant over compliance records.
type ShareLink struct {
	ID             string         `db:"id" json:"id"`
	Token          string         `db:"token" json:"token"`
	ResourceType   string         `db:"resource_type" json:"resource_type"`
	ResourceIDs    pq.StringArray `db:"resource_ids" json:"resource_ids"`
	CreatedBy      string         `db:"created_by" json:"created_by"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	ExpiresAt      time.Time      `db:"expires_at" json:"expires_at"`
	PasswordHash   string         `db:"password_hash" json:"-"`
	OneTimeUse     bool           `db:"one_time_use" json:"one_time_use"`
	MaxAccessCount *int           `db:"max_access_count" json:"max_access_count,omitempty"`
	AccessCount    int            `db:"access_count" json:"access_count"`
	Revoked        bool           `db:"revoked" json:"revoked"`
	RevokedAt      *time.Time     `db:"revoked_at" json:"revoked_at,omitempty"`
	Watermark      bool           `db:"watermark" json:"watermark"`
	Metadata       types.JSONText `db:"metadata" json:"metadata"`
}

// AccessCeiling returns the maximum number of successful redemptions and
// whether such a bound exists.
func (l *ShareLink) AccessCeiling() (int, bool) {
	if l.OneTimeUse {
		return 1, true
	}
	if l.MaxAccessCount != nil {
		return *l.MaxAccessCount, true
	}
	return 0, false
}

// Exhausted reports whether the access ceiling has been reached.
func (l *ShareLink) Exhausted() bool {
	ceiling, bounded := l.AccessCeiling()
	return bounded && l.AccessCount >= ceiling
}

// Expired reports whether the link is past its expiry at now.
func (l *ShareLink) Expired(now time.Time) bool {
	return !now.Before(l.ExpiresAt)
}

// Status derives the lifecycle state. Revocation and expiry take precedence
// over exhaustion.
func (l *ShareLink) Status(now time.Time) LinkStatus {
	switch {
	case l.Revoked:
		return LinkStatusRevoked
	case l.Expired(now):
		return LinkStatusExpired
	case l.Exhausted():
		return LinkStatusExhausted
	default:
		return LinkStatusActive
	}
}

// ShareLinkFilter narrows share link listings.
type ShareLinkFilter struct {
	CreatedBy    string
	ResourceType string
	Page         int
	PageSize     int
}
