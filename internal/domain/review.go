package domain

import "time"

const (
	MinStars = 1
	MaxStars = 5
)

// Review is a user's rating of a product. UserName and ProductTitle are
// filled by read queries only.
type Review struct {
	ID           int64     `json:"id" db:"id"`
	UserID       int64     `json:"user_id" db:"user_id"`
	ProductID    int64     `json:"product_id" db:"product_id"`
	Review       string    `json:"review" db:"review"`
	Stars        int       `json:"stars" db:"stars"`
	UserName     string    `json:"user_name,omitempty"`
	ProductTitle string    `json:"product_title,omitempty"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
