package models

import "time"

type Booking struct {
	ID         int64         `json:"id" db:"id"`
	Start      time.Time     `json:"start" db:"start_time"`
	End        time.Time     `json:"end" db:"end_time"`
	ItemID     int64         `json:"item_id" db:"item_id"`
	ItemName   string        `json:"item_name" db:"item_name"`
	OwnerID    int64         `json:"owner_id" db:"owner_id"`
	BookerID   int64         `json:"booker_id" db:"booker_id"`
	BookerName string        `json:"booker_name" db:"booker_name"`
	Status     BookingStatus `json:"status" db:"status"`
	CreatedAt  time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at" db:"updated_at"`
	Version    int64         `json:"version" db:"version"`
}

// IsParticipant reports whether userID is the booker or the owner of the booked item.
func (b *Booking) IsParticipant(userID int64) bool {
	return b.BookerID == userID || b.OwnerID == userID
}
