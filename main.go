package main

import (
	"github.com/alecthomas/kong"
	"gorm.io/gorm"
)

type Context struct {
	Debug bool

	gorm.Config
	Dialector gorm.Dialector
}

var cli struct {
	Debug bool   `help:"Enable debug logging." env:"NETTLE_DEBUG"`
	DSN   string `help:"Data source name." env:"NETTLE_DSN" default:"nettle.db"`

	Serve       ServeCmd       `cmd:"" help:"Serve the federation endpoints."`
	AutoMigrate AutoMigrateCmd `cmd:"" help:"Create or update the database schema."`
	CreateUser  CreateUserCmd  `cmd:"" help:"Create a local user."`
	Follow      FollowCmd      `cmd:"" help:"Send a follow request to a remote actor."`
	Post        PostCmd        `cmd:"" help:"Publish a post to followers."`
	ShowActor   ShowActorCmd   `cmd:"" help:"Fetch and display a remote actor."`
}

func main() {
	ctx := kong.Parse(&cli)
	err := ctx.Run(&Context{
		Debug:     cli.Debug,
		Dialector: newDialector(cli.DSN),
	})
	ctx.FatalIfErrorf(err)
}
