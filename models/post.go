package models

import (
	"time"

	"github.com/nettle-social/nettle/internal/snowflake"
	"gorm.io/gorm"
)

// A Post is a local or remote note. A local post is created with a
// placeholder URI and rewritten once the object URI, which depends on
// the post's ID, is known; until then it is unpublished and must not be
// dereferenceable.
type Post struct {
	ID        snowflake.ID `gorm:"primarykey;autoIncrement:false"`
	CreatedAt time.Time
	ActorID   snowflake.ID `gorm:"index;not null"`
	Actor     *Actor       `gorm:"constraint:OnDelete:CASCADE;<-:false;"`
	URI       string       `gorm:"uniqueIndex;size:255;not null"`
	URL       string       `gorm:"size:255"`
	Content   string       `gorm:"type:text;not null"`
}

type Posts struct {
	db *gorm.DB
}

func NewPosts(db *gorm.DB) *Posts {
	return &Posts{db: db}
}

// FindByActor returns the actor's posts, most recent first, at most
// limit rows.
func (p *Posts) FindByActor(actorID snowflake.ID, limit int) ([]*Post, error) {
	var posts []*Post
	err := p.db.Where("actor_id = ?", actorID).Order("id desc").Limit(limit).Find(&posts).Error
	return posts, err
}

// FindByIDAndActor returns the post with the given id owned by the
// given actor.
func (p *Posts) FindByIDAndActor(id, actorID snowflake.ID) (*Post, error) {
	var posts []Post
	if err := p.db.Where("id = ? AND actor_id = ?", id, actorID).Find(&posts).Error; err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &posts[0], nil
}

// UpdateURI rewrites the post's URI and URL, completing the two-phase
// create.
func (p *Posts) UpdateURI(id snowflake.ID, uri string) error {
	return p.db.Model(&Post{}).Where("id = ?", id).Updates(map[string]interface{}{
		"uri": uri,
		"url": uri,
	}).Error
}
