package models

import (
	"time"

	"github.com/nettle-social/nettle/internal/snowflake"
	"gorm.io/gorm"
)

// A User is a local account. Its Username is the stable identifier used
// in all federation URIs; the associated Actor carries the outward
// identity, and Keys hold the signing material.
type User struct {
	ID                snowflake.ID `gorm:"primarykey;autoIncrement:false"`
	CreatedAt         time.Time
	Username          string `gorm:"size:64;uniqueIndex;not null"`
	EncryptedPassword []byte `gorm:"type:blob"`
	ActorID           snowflake.ID
	Actor             *Actor `gorm:"constraint:OnDelete:CASCADE;"`
	Keys              []Key  `gorm:"constraint:OnDelete:CASCADE;"`
}

type Users struct {
	db *gorm.DB
}

func NewUsers(db *gorm.DB) *Users {
	return &Users{db: db}
}

// FindByUsername returns the local user with the given username, with
// its actor and keys preloaded. Returns gorm.ErrRecordNotFound if there
// is no such user.
func (u *Users) FindByUsername(username string) (*User, error) {
	var users []User
	if err := u.db.Preload("Actor").Preload("Keys").Where("username = ?", username).Find(&users).Error; err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &users[0], nil
}
