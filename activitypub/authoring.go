package activitypub

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/nettle-social/nettle/internal/httpx"
	"github.com/nettle-social/nettle/internal/to"
)

// The authoring endpoints are the local, non-federated surface: they
// accept form or JSON submissions on behalf of a local user and hand
// off to the outbox. They are intended to sit behind a reverse proxy
// that handles authentication.

// PostCreate publishes a new post for the local user and delivers it
// to their followers.
func PostCreate(env *Env, w http.ResponseWriter, r *http.Request) error {
	var params struct {
		Content string `json:"content" schema:"content"`
	}
	if err := httpx.Params(r, &params); err != nil {
		return err
	}
	post, err := SendPost(r.Context(), env, chi.URLParam(r, "username"), params.Content)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusCreated)
	return to.JSON(w, map[string]any{
		"id":      post.URI,
		"content": post.Content,
	})
}

// FollowCreate sends a follow request from the local user to a remote
// actor named by handle or URI.
func FollowCreate(env *Env, w http.ResponseWriter, r *http.Request) error {
	var params struct {
		Actor string `json:"actor" schema:"actor"`
	}
	if err := httpx.Params(r, &params); err != nil {
		return err
	}
	if err := SendFollow(r.Context(), env, chi.URLParam(r, "username"), params.Actor); err != nil {
		return err
	}
	w.WriteHeader(http.StatusAccepted)
	return nil
}
