package api

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"shareit/internal/domain"
	"shareit/internal/models"
)

// localTimeLayout is the zone-less form clients send, read as UTC.
const localTimeLayout = "2006-01-02T15:04:05"

// flexTime accepts RFC 3339 and zone-less ISO timestamps.
type flexTime struct {
	time.Time
}

func (t *flexTime) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("timestamp must be a JSON string")
	}
	if raw = strings.TrimSpace(raw); raw == "" {
		return nil
	}
	if parsed, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		t.Time = parsed.UTC()
		return nil
	}
	parsed, err := time.ParseInLocation(localTimeLayout, raw, time.UTC)
	if err != nil {
		return fmt.Errorf("invalid timestamp %q", raw)
	}
	t.Time = parsed
	return nil
}

type userRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
}

func (r userRequest) toUser() (*models.User, error) {
	if r.Name == nil || strings.TrimSpace(*r.Name) == "" {
		return nil, fmt.Errorf("%w: name must not be blank", domain.ErrValidation)
	}
	if r.Email == nil {
		return nil, fmt.Errorf("%w: email is required", domain.ErrValidation)
	}
	email, err := validEmail(*r.Email)
	if err != nil {
		return nil, err
	}
	return &models.User{Name: strings.TrimSpace(*r.Name), Email: email}, nil
}

func (r userRequest) toPatch() (models.UserPatch, error) {
	var patch models.UserPatch
	if r.Name != nil {
		name := strings.TrimSpace(*r.Name)
		if name == "" {
			return patch, fmt.Errorf("%w: name must not be blank", domain.ErrValidation)
		}
		patch.Name = &name
	}
	if r.Email != nil {
		email, err := validEmail(*r.Email)
		if err != nil {
			return patch, err
		}
		patch.Email = &email
	}
	return patch, nil
}

func validEmail(raw string) (string, error) {
	email := strings.TrimSpace(raw)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%w: malformed email %q", domain.ErrValidation, raw)
	}
	return email, nil
}

type itemRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Available   *bool   `json:"available"`
	RequestID   *int64  `json:"request_id"`
}

func (r itemRequest) toItem() (*models.Item, error) {
	if r.Name == nil || strings.TrimSpace(*r.Name) == "" {
		return nil, fmt.Errorf("%w: name must not be blank", domain.ErrValidation)
	}
	if r.Description == nil || strings.TrimSpace(*r.Description) == "" {
		return nil, fmt.Errorf("%w: description must not be blank", domain.ErrValidation)
	}
	if r.Available == nil {
		return nil, fmt.Errorf("%w: available is required", domain.ErrValidation)
	}
	return &models.Item{
		Name:        strings.TrimSpace(*r.Name),
		Description: strings.TrimSpace(*r.Description),
		Available:   *r.Available,
		RequestID:   r.RequestID,
	}, nil
}

// toPatch ignores blank strings, matching a partial update that only sends changed fields.
func (r itemRequest) toPatch() models.ItemPatch {
	var patch models.ItemPatch
	if r.Name != nil && strings.TrimSpace(*r.Name) != "" {
		name := strings.TrimSpace(*r.Name)
		patch.Name = &name
	}
	if r.Description != nil && strings.TrimSpace(*r.Description) != "" {
		desc := strings.TrimSpace(*r.Description)
		patch.Description = &desc
	}
	patch.Available = r.Available
	return patch
}

type bookingRequest struct {
	ItemID int64     `json:"item_id"`
	Start  *flexTime `json:"start"`
	End    *flexTime `json:"end"`
}

// validate checks what the engine leaves to the front door. Ordering of
// start and end is the engine's decision.
func (r bookingRequest) validate(now time.Time) error {
	if r.ItemID <= 0 {
		return fmt.Errorf("%w: item_id is required", domain.ErrValidation)
	}
	if r.Start == nil || r.Start.IsZero() || r.End == nil || r.End.IsZero() {
		return fmt.Errorf("%w: start and end are required", domain.ErrValidation)
	}
	if r.Start.Before(now) {
		return fmt.Errorf("%w: start must not be in the past", domain.ErrValidation)
	}
	if !r.End.After(now) {
		return fmt.Errorf("%w: end must be in the future", domain.ErrValidation)
	}
	return nil
}

type textRequest struct {
	Text        string `json:"text"`
	Description string `json:"description"`
}

func requireText(field, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("%w: %s must not be blank", domain.ErrValidation, field)
	}
	return value, nil
}
