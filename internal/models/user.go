package models

import (
	"time"
)

// User represents a registered account. Places holds the ids of the places
// the user created, in creation order.
type User struct {
	ID           string    `json:"id" bson:"_id" db:"id"`
	Username     string    `json:"username" bson:"username" db:"username"`
	Email        string    `json:"email" bson:"email" db:"email"`
	PasswordHash string    `json:"-" bson:"password" db:"password"`
	Image        string    `json:"image" bson:"image" db:"image"`
	Places       []string  `json:"places" bson:"places" db:"places"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" bson:"updated_at" db:"updated_at"`
}
