package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestShareLinkStatusPrecedence(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	limit := 2

	cases := []struct {
		name string
		link ShareLink
		want LinkStatus
	}{
		{"active unbounded", ShareLink{ExpiresAt: now.Add(time.Hour), AccessCount: 50}, LinkStatusActive},
		{"one time used", ShareLink{ExpiresAt: now.Add(time.Hour), OneTimeUse: true, AccessCount: 1}, LinkStatusExhausted},
		{"max reached", ShareLink{ExpiresAt: now.Add(time.Hour), MaxAccessCount: &limit, AccessCount: 2}, LinkStatusExhausted},
		{"expiry boundary", ShareLink{ExpiresAt: now}, LinkStatusExpired},
		{"expired beats exhausted", ShareLink{ExpiresAt: now.Add(-time.Minute), OneTimeUse: true, AccessCount: 1}, LinkStatusExpired},
		{"revoked beats all", ShareLink{ExpiresAt: now.Add(-time.Minute), Revoked: true, OneTimeUse: true, AccessCount: 1}, LinkStatusRevoked},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.link.Status(now))
		})
	}
}

func TestAccessCeilingOneTimeOverridesMax(t *testing.T) {
	limit := 5
	link := ShareLink{OneTimeUse: true, MaxAccessCount: &limit}
	ceiling, bounded := link.AccessCeiling()
	assert.True(t, bounded)
	assert.Equal(t, 1, ceiling)
}
