package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/go-json-experiment/json"
	"github.com/nettle-social/nettle/activitypub"
	"gorm.io/gorm"
)

type ShowActorCmd struct {
	Actor  string `required:"" help:"handle or uri of the actor to display"`
	SignAs string `required:"" help:"local username to sign the request as"`
	Domain string `required:"" help:"domain name of the instance" env:"NETTLE_DOMAIN"`
}

func (s *ShowActorCmd) Run(ctx *Context) error {
	db, err := gorm.Open(ctx.Dialector, &ctx.Config)
	if err != nil {
		return err
	}

	env := &activitypub.Env{
		DB:     db,
		Domain: s.Domain,
		Log:    log.New(os.Stderr),
	}
	props, err := activitypub.LookupActor(context.Background(), env, s.SignAs, s.Actor)
	if err != nil {
		return fmt.Errorf("failed to look up actor %s: %w", s.Actor, err)
	}
	return json.MarshalFull(os.Stdout, props)
}
