package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/nettle-social/nettle/activitypub"
	"github.com/nettle-social/nettle/internal/group"
	"github.com/nettle-social/nettle/internal/httpx"
	"github.com/nettle-social/nettle/wellknown"
	"gorm.io/gorm"
)

type ServeCmd struct {
	Addr   string `help:"address to listen" default:":8080" env:"NETTLE_ADDR"`
	Domain string `required:"" help:"domain name of the instance" env:"NETTLE_DOMAIN"`
}

func (s *ServeCmd) Run(ctx *Context) error {
	db, err := gorm.Open(ctx.Dialector, &ctx.Config)
	if err != nil {
		return err
	}

	if err := configureDB(db); err != nil {
		return err
	}

	logger := log.New(os.Stderr)
	if ctx.Debug {
		logger.SetLevel(log.DebugLevel)
	}

	env := &activitypub.Env{
		DB:     db,
		Domain: s.Domain,
		Log:    logger,
	}

	c := chi.NewRouter()
	c.Use(middleware.RequestID)
	c.Use(middleware.RealIP)
	c.Use(middleware.Logger)
	c.Use(middleware.Recoverer)

	c.Mount("/", activitypub.Router(env, activitypub.NewConfig()))

	envFn := func(r *http.Request) *activitypub.Env { return env }
	c.Route("/.well-known", func(r chi.Router) {
		r.Get("/webfinger", httpx.HandlerFunc(envFn, wellknown.Webfinger))
		r.Get("/host-meta", httpx.HandlerFunc(envFn, wellknown.HostMeta))
	})

	c.Get("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		io.WriteString(w, "User-agent: *\nDisallow: /")
	})

	walkFunc := func(method string, route string, handler http.Handler, middlewares ...func(http.Handler) http.Handler) error {
		route = strings.Replace(route, "/*/", "/", -1)
		fmt.Printf("%s %s\n", method, route)
		return nil
	}

	if err := chi.Walk(c, walkFunc); err != nil {
		fmt.Printf("Logging err: %s\n", err.Error())
	}

	svr := &http.Server{
		Addr:         s.Addr,
		Handler:      c,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}

	signalCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g := group.New(signalCtx)
	g.AddContext(func(gctx context.Context) error {
		logger.Info("serve", "addr", s.Addr, "domain", s.Domain)
		if err := svr.ListenAndServe(); err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.AddContext(func(gctx context.Context) error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return svr.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
