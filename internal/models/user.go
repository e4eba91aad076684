package models

import "time"

type User struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// UserPatch carries a partial profile update; nil means "keep".
type UserPatch struct {
	Name  *string
	Email *string
}

// ItemRequest is a user's ask for an item that is not in the catalog yet.
type ItemRequest struct {
	ID          int64     `json:"id" db:"id"`
	Description string    `json:"description" db:"description"`
	RequesterID int64     `json:"requester_id" db:"requester_id"`
	CreatedAt   time.Time `json:"created" db:"created_at"`
}

// RequestView is an item request together with the items created to fulfil it.
type RequestView struct {
	ItemRequest
	Items []*Item `json:"items"`
}
