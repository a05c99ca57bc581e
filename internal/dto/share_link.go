package dto

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/compliance-links-api/internal/models"
)

// ResourceIDList accepts either a single id or an ordered list of ids.
type ResourceIDList []string

// UnmarshalJSON decodes `"emp_1"` or `["emp_1","emp_2"]`.
func (l *ResourceIDList) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var ids []string
		if err := json.Unmarshal(data, &ids); err != nil {
			return fmt.Errorf("resource_id: %w", err)
		}
		*l = ids
		return nil
	}
	if trimmed == "null" {
		*l = nil
		return nil
	}
	var id string
	if err := json.Unmarshal(data, &id); err != nil {
		return fmt.Errorf("resource_id must be a string or array of strings: %w", err)
	}
	*l = ResourceIDList{id}
	return nil
}

// CreateShareLinkRequest is the POST /links payload.
type CreateShareLinkRequest struct {
	ResourceType     string                 `json:"resource_type" validate:"required,max=64"`
	ResourceID       ResourceIDList         `json:"resource_id" validate:"required,min=1,max=500,dive,required,max=128"`
	Password         string                 `json:"password" validate:"required,max=256"`
	ExpiresIn        string                 `json:"expires_in" validate:"required,oneof=1h 1d 1w 1hour 1day 1week custom"`
	CustomExpiration *time.Time             `json:"custom_expiration,omitempty" validate:"required_if=ExpiresIn custom"`
	OneTimeUse       bool                   `json:"one_time_use"`
	MaxAccessCount   *int                   `json:"max_access_count,omitempty" validate:"omitempty,min=1"`
	Watermark        bool                   `json:"watermark"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
}

// CreateShareLinkResponse is returned after a link is minted. It never
// carries the password or its hash.
type CreateShareLinkResponse struct {
	ID             string    `json:"id"`
	Token          string    `json:"token"`
	URL            string    `json:"url"`
	ExpiresAt      time.Time `json:"expires_at"`
	OneTimeUse     bool      `json:"one_time_use"`
	MaxAccessCount *int      `json:"max_access_count,omitempty"`
	Watermark      bool      `json:"watermark"`
}

// ResolveShareLinkRequest is the POST /s/:token payload.
type ResolveShareLinkRequest struct {
	Password string `json:"password"`
}

// ResolvedShareLink is the payload disclosed to a recipient.
type ResolvedShareLink struct {
	ResourceType string          `json:"resource_type"`
	ResourceIDs  []string        `json:"resource_ids"`
	Data         interface{}     `json:"data"`
	Watermark    bool            `json:"watermark"`
	Metadata     json.RawMessage `json:"metadata,omitempty"`
	AccessCount  int             `json:"access_count"`
	ExpiresAt    time.Time       `json:"expires_at"`
}

// ShareLinkView is the management representation of a link.
type ShareLinkView struct {
	ID             string            `json:"id"`
	Token          string            `json:"token"`
	URL            string            `json:"url"`
	ResourceType   string            `json:"resource_type"`
	ResourceIDs    []string          `json:"resource_ids"`
	CreatedBy      string            `json:"created_by"`
	CreatedAt      time.Time         `json:"created_at"`
	ExpiresAt      time.Time         `json:"expires_at"`
	OneTimeUse     bool              `json:"one_time_use"`
	MaxAccessCount *int              `json:"max_access_count,omitempty"`
	AccessCount    int               `json:"access_count"`
	Revoked        bool              `json:"revoked"`
	RevokedAt      *time.Time        `json:"revoked_at,omitempty"`
	Watermark      bool              `json:"watermark"`
	Metadata       json.RawMessage   `json:"metadata,omitempty"`
	Status         models.LinkStatus `json:"status"`
}

// ShareLinkListQuery captures GET /links query parameters.
type ShareLinkListQuery struct {
	CreatedBy    string `form:"created_by"`
	ResourceType string `form:"resource_type"`
	Page         int    `form:"page"`
	PageSize     int    `form:"page_size"`
}
