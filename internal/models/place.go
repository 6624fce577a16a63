package models

import (
	"time"
)

type Location struct {
	Lat float64 `json:"lat" bson:"lat" db:"lat"`
	Lng float64 `json:"lng" bson:"lng" db:"lng"`
}

// Place is a user-owned location record. Address, Location, Image and
// CreatorID never change after creation.
type Place struct {
	ID          string    `json:"id" bson:"_id" db:"id"`
	Title       string    `json:"title" bson:"title" db:"title"`
	Description string    `json:"description" bson:"description" db:"description"`
	Address     string    `json:"address" bson:"address" db:"address"`
	Location    Location  `json:"location" bson:"location"`
	Image       string    `json:"image" bson:"image" db:"image"`
	CreatorID   string    `json:"creator" bson:"creator" db:"creator_id"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" bson:"updated_at" db:"updated_at"`
}
