package main

import (
	"context"
	"os"

	"github.com/charmbracelet/log"
	"github.com/nettle-social/nettle/activitypub"
	"gorm.io/gorm"
)

type FollowCmd struct {
	Actor  string `required:"" help:"local username to follow with"`
	Target string `required:"" help:"handle or uri of the actor to follow"`
	Domain string `required:"" help:"domain name of the instance" env:"NETTLE_DOMAIN"`
}

func (f *FollowCmd) Run(ctx *Context) error {
	db, err := gorm.Open(ctx.Dialector, &ctx.Config)
	if err != nil {
		return err
	}

	env := &activitypub.Env{
		DB:     db,
		Domain: f.Domain,
		Log:    log.New(os.Stderr),
	}
	return activitypub.SendFollow(context.Background(), env, f.Actor, f.Target)
}
