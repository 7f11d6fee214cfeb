package models

import "time"

// Base replaces gorm.Model: rows are hard-deleted so foreign key rules
// (RESTRICT, CASCADE) are enforced by the database.
type Base struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
