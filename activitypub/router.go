package activitypub

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/nettle-social/nettle/internal/httpx"
)

// A Config is the explicit set of dispatchers the transport serves.
// It is built once at startup and passed into Router by value; there
// is no ambient registration and no mutable global.
type Config struct {
	Actor     func(*Env, http.ResponseWriter, *http.Request) error
	Outbox    func(*Env, http.ResponseWriter, *http.Request) error
	Followers func(*Env, http.ResponseWriter, *http.Request) error
	Following func(*Env, http.ResponseWriter, *http.Request) error
	Post      func(*Env, http.ResponseWriter, *http.Request) error
	Inbox     map[string]InboxHandler

	// authoring surface
	CreatePost   func(*Env, http.ResponseWriter, *http.Request) error
	CreateFollow func(*Env, http.ResponseWriter, *http.Request) error
}

// NewConfig returns the default dispatcher configuration.
func NewConfig() Config {
	return Config{
		Actor:     ActorShow,
		Outbox:    OutboxShow,
		Followers: FollowersShow,
		Following: FollowingShow,
		Post:      PostShow,
		Inbox:     InboxHandlers(),

		CreatePost:   PostCreate,
		CreateFollow: FollowCreate,
	}
}

// Router mounts the federation endpoints for the given configuration.
func Router(env *Env, cfg Config) chi.Router {
	envFn := func(r *http.Request) *Env { return env }
	handler := func(fn func(*Env, http.ResponseWriter, *http.Request) error) http.HandlerFunc {
		return httpx.HandlerFunc(envFn, fn)
	}

	r := chi.NewRouter()
	inbox := handler(InboxCreate(cfg.Inbox))
	r.Post("/inbox", inbox)
	r.Route("/users/{username}", func(r chi.Router) {
		r.Get("/", handler(cfg.Actor))
		r.Post("/inbox", inbox)
		r.Get("/outbox", handler(cfg.Outbox))
		r.Get("/followers", handler(cfg.Followers))
		r.Get("/following", handler(cfg.Following))
		r.Get("/posts/{id:[0-9]+}", handler(cfg.Post))
		r.Post("/posts", handler(cfg.CreatePost))
		r.Post("/following", handler(cfg.CreateFollow))
	})
	return r
}
