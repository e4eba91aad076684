package models

import "time"

type Item struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	Available   bool      `json:"available" db:"is_available"`
	OwnerID     int64     `json:"owner_id" db:"owner_id"`
	RequestID   *int64    `json:"request_id,omitempty" db:"request_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// ItemPatch carries the fields an owner may change; nil means "keep".
type ItemPatch struct {
	Name        *string
	Description *string
	Available   *bool
}

// Apply copies the set fields of p onto item.
func (p ItemPatch) Apply(item *Item) {
	if p.Name != nil {
		item.Name = *p.Name
	}
	if p.Description != nil {
		item.Description = *p.Description
	}
	if p.Available != nil {
		item.Available = *p.Available
	}
}

// ItemView is an item enriched with its booking timeline and comments.
type ItemView struct {
	Item
	LastBooking *time.Time `json:"last_booking"`
	NextBooking *time.Time `json:"next_booking"`
	Comments    []*Comment `json:"comments"`
}

type Comment struct {
	ID         int64     `json:"id" db:"id"`
	Text       string    `json:"text" db:"text"`
	ItemID     int64     `json:"item_id" db:"item_id"`
	AuthorID   int64     `json:"author_id" db:"author_id"`
	AuthorName string    `json:"author_name" db:"author_name"`
	CreatedAt  time.Time `json:"created" db:"created_at"`
}
