package domain

import "time"

// User is a registered account. Password holds the salted digest, never plaintext.
type User struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	Email     string    `gorm:"size:100;uniqueIndex;not null"`
	Name      string    `gorm:"size:100;not null"`
	Password  string    `gorm:"size:255;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// TableName pins the table to the migrated schema.
func (User) TableName() string { return "users" }
