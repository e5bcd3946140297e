package main

import (
	"fmt"

	"github.com/nettle-social/nettle/activitypub"
	"github.com/nettle-social/nettle/internal/snowflake"
	"github.com/nettle-social/nettle/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type CreateUserCmd struct {
	Username string `required:"" help:"username of the user to create"`
	Password string `required:"" help:"password of the user to create"`
	Domain   string `required:"" help:"domain name of the instance" env:"NETTLE_DOMAIN"`
	Name     string `help:"display name, defaults to the username"`
}

func (c *CreateUserCmd) Run(ctx *Context) error {
	db, err := gorm.Open(ctx.Dialector, &ctx.Config)
	if err != nil {
		return err
	}

	passwd, err := bcrypt.GenerateFromPassword([]byte(c.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	name := c.Name
	if name == "" {
		name = c.Username
	}

	uris := activitypub.NewURIs(c.Domain)
	actor := &models.Actor{
		ID:             snowflake.Now(),
		URI:            uris.Actor(c.Username),
		Handle:         fmt.Sprintf("@%s@%s", c.Username, c.Domain),
		Name:           name,
		InboxURL:       uris.Inbox(c.Username),
		SharedInboxURL: uris.SharedInbox(),
		URL:            uris.Actor(c.Username),
	}
	if err := db.Create(actor).Error; err != nil {
		return err
	}

	user := &models.User{
		ID:                snowflake.Now(),
		Username:          c.Username,
		EncryptedPassword: passwd,
		ActorID:           actor.ID,
	}
	return db.Create(user).Error
}
