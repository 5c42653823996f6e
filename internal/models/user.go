package models

import (
	"time"
)

type User struct {
	ID           string    `gorm:"primaryKey;type:varchar(36)" bson:"_id" json:"_id"`
	Email        string    `gorm:"uniqueIndex;not null" bson:"email" json:"email"`
	PasswordHash string    `gorm:"not null" bson:"password" json:"-"`
	CreatedAt    time.Time `gorm:"index" bson:"createdAt" json:"createdAt"`
}
