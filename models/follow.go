package models

import (
	"time"

	"github.com/nettle-social/nettle/internal/snowflake"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// A Follow is a directed edge in the follow graph: Follower follows
// Following. The composite primary key makes the edge a set member, so
// duplicate deliveries of the same Follow activity cannot corrupt
// follower counts.
type Follow struct {
	FollowingID snowflake.ID `gorm:"primarykey;autoIncrement:false"`
	Following   *Actor       `gorm:"constraint:OnDelete:CASCADE;<-:false;"`
	FollowerID  snowflake.ID `gorm:"primarykey;autoIncrement:false"`
	Follower    *Actor       `gorm:"constraint:OnDelete:CASCADE;<-:false;"`
	CreatedAt   time.Time
}

type Follows struct {
	db *gorm.DB
}

func NewFollows(db *gorm.DB) *Follows {
	return &Follows{db: db}
}

// Create inserts the follow edge. Inserting an edge that already exists
// is a no-op.
func (f *Follows) Create(followingID, followerID snowflake.ID) error {
	return f.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "following_id"}, {Name: "follower_id"}},
		DoNothing: true,
	}).Create(&Follow{
		FollowingID: followingID,
		FollowerID:  followerID,
	}).Error
}

// Delete removes the edge where the given actor is followed by the
// actor with the given URI. Deleting a non-existent edge is a no-op.
func (f *Follows) Delete(followingID snowflake.ID, followerURI string) error {
	follower := f.db.Model(&Actor{}).Select("id").Where("uri = ?", followerURI)
	return f.db.Where("following_id = ? AND follower_id IN (?)", followingID, follower).Delete(&Follow{}).Error
}

// Followers returns the actors following the given actor, newest edge
// first.
func (f *Follows) Followers(followingID snowflake.ID) ([]*Actor, error) {
	var follows []Follow
	if err := f.db.Preload("Follower").Where("following_id = ?", followingID).Order("created_at desc").Find(&follows).Error; err != nil {
		return nil, err
	}
	actors := make([]*Actor, 0, len(follows))
	for _, follow := range follows {
		actors = append(actors, follow.Follower)
	}
	return actors, nil
}

// Following returns the actors the given actor follows, newest edge
// first.
func (f *Follows) Following(followerID snowflake.ID) ([]*Actor, error) {
	var follows []Follow
	if err := f.db.Preload("Following").Where("follower_id = ?", followerID).Order("created_at desc").Find(&follows).Error; err != nil {
		return nil, err
	}
	actors := make([]*Actor, 0, len(follows))
	for _, follow := range follows {
		actors = append(actors, follow.Following)
	}
	return actors, nil
}

// CountFollowers returns the number of actors following the given actor.
func (f *Follows) CountFollowers(followingID snowflake.ID) (int64, error) {
	var count int64
	err := f.db.Model(&Follow{}).Where("following_id = ?", followingID).Count(&count).Error
	return count, err
}

// CountFollowing returns the number of actors the given actor follows.
func (f *Follows) CountFollowing(followerID snowflake.ID) (int64, error) {
	var count int64
	err := f.db.Model(&Follow{}).Where("follower_id = ?", followerID).Count(&count).Error
	return count, err
}
