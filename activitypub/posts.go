package activitypub

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/nettle-social/nettle/internal/httpx"
	"github.com/nettle-social/nettle/internal/snowflake"
	"github.com/nettle-social/nettle/internal/to"
	"github.com/nettle-social/nettle/models"
	"gorm.io/gorm"
)

// PostShow serves a local post as a Note object. A post whose URI has
// not yet been rewritten from its placeholder is unpublished and must
// not be dereferenceable, so it is served as not found.
func PostShow(env *Env, w http.ResponseWriter, r *http.Request) error {
	identifier := chi.URLParam(r, "username")
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return httpx.Error(http.StatusNotFound, fmt.Errorf("invalid post id: %w", err))
	}

	user, err := models.NewUsers(env.DB).FindByUsername(identifier)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httpx.Error(http.StatusNotFound, fmt.Errorf("no such user: %s", identifier))
		}
		return err
	}
	post, err := models.NewPosts(env.DB).FindByIDAndActor(snowflake.ID(id), user.ActorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httpx.Error(http.StatusNotFound, errors.New("no such post"))
		}
		return err
	}

	uris := env.URIs()
	if post.URI != uris.Post(identifier, post.ID) {
		return httpx.Error(http.StatusNotFound, errors.New("no such post"))
	}
	return to.ActivityJSON(w, noteObject(uris, identifier, post))
}
