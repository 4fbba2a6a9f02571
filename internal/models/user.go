package models

import (
	"time"
)

// User owns a journal
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex;size:50;not null" json:"username"`
	Email        string    `gorm:"uniqueIndex;size:100;not null" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Relations
	Trades []Trade `gorm:"foreignKey:UserID" json:"trades,omitempty"`
}

// TableName specifies the table name for User model
func (User) TableName() string {
	return "users"
}
