package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/nettle-social/nettle/activitypub"
	"gorm.io/gorm"
)

type PostCmd struct {
	Actor   string `required:"" help:"local username to post as"`
	Content string `required:"" help:"content of the post"`
	Domain  string `required:"" help:"domain name of the instance" env:"NETTLE_DOMAIN"`
}

func (p *PostCmd) Run(ctx *Context) error {
	db, err := gorm.Open(ctx.Dialector, &ctx.Config)
	if err != nil {
		return err
	}

	env := &activitypub.Env{
		DB:     db,
		Domain: p.Domain,
		Log:    log.New(os.Stderr),
	}
	post, err := activitypub.SendPost(context.Background(), env, p.Actor, p.Content)
	if err != nil {
		return err
	}
	fmt.Println(post.URI)
	return nil
}
