package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the shopper identity. Rows are owned by the identity service.
type User struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	FirstName   string    `gorm:"column:first_name;not null"`
	LastName    string    `gorm:"column:last_name;not null"`
	Email       *string   `gorm:"column:email;uniqueIndex:ux_users_email"`
	PhoneNumber string    `gorm:"column:phone_number;not null;uniqueIndex:ux_users_phone_number"`
	IsActive    bool      `gorm:"column:is_active;not null"`
	IsStaff     bool      `gorm:"column:is_staff;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	ensureID(&u.ID)
	return nil
}
