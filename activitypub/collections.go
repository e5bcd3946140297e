package activitypub

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/nettle-social/nettle/internal/algorithms"
	"github.com/nettle-social/nettle/internal/snowflake"
	"github.com/nettle-social/nettle/internal/to"
	"github.com/nettle-social/nettle/models"
	"gorm.io/gorm"
)

// Collection endpoints never fail the protocol response for an unknown
// actor: counts come back as zero and pages come back empty.

// FollowersShow serves the followers collection: every remote actor
// with an active follow edge towards the local actor, newest edge
// first, in a minimal recipient shape.
func FollowersShow(env *Env, w http.ResponseWriter, r *http.Request) error {
	identifier := chi.URLParam(r, "username")
	uris := env.URIs()
	actorID, ok, err := localActorID(env, identifier)
	if err != nil {
		return err
	}

	if r.URL.Query().Get("page") != "true" {
		count := int64(0)
		if ok {
			if count, err = models.NewFollows(env.DB).CountFollowers(actorID); err != nil {
				return err
			}
		}
		return to.ActivityJSON(w, map[string]any{
			"@context":   "https://www.w3.org/ns/activitystreams",
			"id":         uris.Followers(identifier),
			"type":       "OrderedCollection",
			"totalItems": count,
			"first":      uris.Followers(identifier) + "?page=true",
		})
	}

	var followers []*models.Actor
	if ok {
		if followers, err = models.NewFollows(env.DB).Followers(actorID); err != nil {
			return err
		}
	}
	return to.ActivityJSON(w, map[string]any{
		"@context": "https://www.w3.org/ns/activitystreams",
		"id":       uris.Followers(identifier) + "?page=true",
		"type":     "OrderedCollectionPage",
		"partOf":   uris.Followers(identifier),
		"orderedItems": algorithms.Map(followers, func(follower *models.Actor) map[string]any {
			item := map[string]any{
				"id":    follower.URI,
				"type":  "Person",
				"inbox": follower.InboxURL,
			}
			if follower.SharedInboxURL != "" {
				item["endpoints"] = map[string]any{
					"sharedInbox": follower.SharedInboxURL,
				}
			}
			return item
		}),
	})
}

// FollowingShow serves the following collection as bare actor URIs,
// newest edge first.
func FollowingShow(env *Env, w http.ResponseWriter, r *http.Request) error {
	identifier := chi.URLParam(r, "username")
	uris := env.URIs()
	actorID, ok, err := localActorID(env, identifier)
	if err != nil {
		return err
	}

	if r.URL.Query().Get("page") != "true" {
		count := int64(0)
		if ok {
			if count, err = models.NewFollows(env.DB).CountFollowing(actorID); err != nil {
				return err
			}
		}
		return to.ActivityJSON(w, map[string]any{
			"@context":   "https://www.w3.org/ns/activitystreams",
			"id":         uris.Following(identifier),
			"type":       "OrderedCollection",
			"totalItems": count,
			"first":      uris.Following(identifier) + "?page=true",
		})
	}

	var following []*models.Actor
	if ok {
		if following, err = models.NewFollows(env.DB).Following(actorID); err != nil {
			return err
		}
	}
	return to.ActivityJSON(w, map[string]any{
		"@context": "https://www.w3.org/ns/activitystreams",
		"id":       uris.Following(identifier) + "?page=true",
		"type":     "OrderedCollectionPage",
		"partOf":   uris.Following(identifier),
		"orderedItems": algorithms.Map(following, func(actor *models.Actor) string {
			return actor.URI
		}),
	})
}

// localActorID resolves a local identifier to its actor id. An unknown
// identifier is not an error here; collection endpoints treat it as an
// empty collection.
func localActorID(env *Env, identifier string) (snowflake.ID, bool, error) {
	user, err := models.NewUsers(env.DB).FindByUsername(identifier)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return user.ActorID, true, nil
}
