package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

type User struct {
	ID         string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	TelegramID int64     `gorm:"uniqueIndex;not null" json:"telegramId,string"`
	Username   *string   `gorm:"type:varchar(64)" json:"username"`
	FirstName  *string   `gorm:"type:varchar(128)" json:"firstName"`
	LastName   *string   `gorm:"type:varchar(128)" json:"lastName"`
	PhotoURL   *string   `gorm:"type:varchar(512)" json:"photoUrl"`
	Role       Role      `gorm:"type:varchar(10);not null" json:"role"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	return nil
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
