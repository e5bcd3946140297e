package models

import (
	"time"

	"github.com/nettle-social/nettle/internal/snowflake"
)

// A Key is one asymmetric keypair belonging to a local user, one row
// per algorithm type. Keys are created lazily on first dispatch, never
// rotated, and removed only with the owning user.
type Key struct {
	ID         snowflake.ID `gorm:"primarykey;autoIncrement:false"`
	CreatedAt  time.Time
	UserID     snowflake.ID `gorm:"uniqueIndex:idx_keys_user_type;not null"`
	Type       string       `gorm:"size:32;uniqueIndex:idx_keys_user_type;not null"`
	PrivateKey []byte       `gorm:"type:blob;not null"`
	PublicKey  []byte       `gorm:"type:blob;not null"`
}
