package models

import (
	"time"

	"github.com/nettle-social/nettle/internal/snowflake"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// An Actor is a federated identity, local or remote. URI is the stable
// cross-system identity key; all upserts are keyed on it. Local actors
// own a User and a set of Keys, remote actors never do.
type Actor struct {
	ID             snowflake.ID `gorm:"primarykey;autoIncrement:false"`
	CreatedAt      time.Time
	URI            string `gorm:"uniqueIndex;size:255;not null"`
	Handle         string `gorm:"uniqueIndex;size:128;not null"` // @user@host
	Name           string `gorm:"size:128"`
	InboxURL       string `gorm:"size:255;not null"`
	SharedInboxURL string `gorm:"size:255"`
	URL            string `gorm:"size:255"`
	AvatarURL      string `gorm:"size:255"`
}

// Inbox returns the preferred delivery inbox, the shared inbox when the
// actor's server advertises one.
func (a *Actor) Inbox() string {
	if a.SharedInboxURL != "" {
		return a.SharedInboxURL
	}
	return a.InboxURL
}

type Actors struct {
	db *gorm.DB
}

func NewActors(db *gorm.DB) *Actors {
	return &Actors{db: db}
}

// FindByURI returns the actor with the given URI.
func (a *Actors) FindByURI(uri string) (*Actor, error) {
	// use find to avoid record not found error in case of empty result
	var actors []Actor
	if err := a.db.Where("uri = ?", uri).Find(&actors).Error; err != nil {
		return nil, err
	}
	if len(actors) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &actors[0], nil
}

// Upsert inserts the actor, or refreshes the mutable fields of the
// existing row with the same URI. The row returned always carries the
// canonical ID, which on conflict is the ID of the pre-existing row,
// not the one supplied.
func (a *Actors) Upsert(actor *Actor) (*Actor, error) {
	err := a.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "uri"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"handle", "name", "inbox_url", "shared_inbox_url", "url", "avatar_url",
		}),
	}).Create(actor).Error
	if err != nil {
		return nil, err
	}
	return a.FindByURI(actor.URI)
}
