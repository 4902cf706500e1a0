package models

import "time"

type Cottage struct {
	ID            string    `yaml:"id" json:"id"`
	Name          string    `yaml:"name" json:"name"`
	Description   string    `yaml:"description" json:"description,omitempty"`
	MaxCapacity   int64     `yaml:"max_capacity" json:"max_capacity"`
	PricePerGuest float64   `yaml:"price_per_guest" json:"price_per_guest"`
	SortOrder     int64     `yaml:"sort_order" json:"sort_order"`
	IsActive      bool      `yaml:"is_active" json:"is_active"`
	CreatedAt     time.Time `yaml:"created_at" json:"created_at"`
	UpdatedAt     time.Time `yaml:"updated_at" json:"updated_at"`
}
