package activitypub

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/nettle-social/nettle/internal/algorithms"
	"github.com/nettle-social/nettle/internal/httpx"
	"github.com/nettle-social/nettle/internal/snowflake"
	"github.com/nettle-social/nettle/internal/to"
	"github.com/nettle-social/nettle/models"
	"gorm.io/gorm"
)

// outboxPageSize bounds an outbox page.
const outboxPageSize = 20

// OutboxShow serves a local actor's outgoing activities as an
// OrderedCollection. Without ?page=true the envelope is returned; with
// it, a page of at most outboxPageSize Create(Note) activities, most
// recent first, synthesized from stored posts.
func OutboxShow(env *Env, w http.ResponseWriter, r *http.Request) error {
	identifier := chi.URLParam(r, "username")
	user, err := models.NewUsers(env.DB).FindByUsername(identifier)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httpx.Error(http.StatusNotFound, fmt.Errorf("no such user: %s", identifier))
		}
		return err
	}

	uris := env.URIs()
	if r.URL.Query().Get("page") != "true" {
		var count int64
		if err := env.DB.Model(&models.Post{}).Where("actor_id = ?", user.ActorID).Count(&count).Error; err != nil {
			return err
		}
		return to.ActivityJSON(w, map[string]any{
			"@context":   "https://www.w3.org/ns/activitystreams",
			"id":         uris.Outbox(identifier),
			"type":       "OrderedCollection",
			"totalItems": count,
			"first":      uris.Outbox(identifier) + "?page=true",
		})
	}

	posts, err := models.NewPosts(env.DB).FindByActor(user.ActorID, outboxPageSize)
	if err != nil {
		return err
	}
	return to.ActivityJSON(w, map[string]any{
		"@context": "https://www.w3.org/ns/activitystreams",
		"id":       uris.Outbox(identifier) + "?page=true",
		"type":     "OrderedCollectionPage",
		"partOf":   uris.Outbox(identifier),
		"orderedItems": algorithms.Map(posts, func(post *models.Post) map[string]any {
			return createActivity(uris, identifier, post)
		}),
	})
}

// noteObject synthesizes the Note for a local post, addressed to the
// public collection and cc'd to the actor's followers.
func noteObject(uris *URIs, identifier string, post *models.Post) map[string]any {
	return map[string]any{
		"id":           post.URI,
		"type":         "Note",
		"attributedTo": uris.Actor(identifier),
		"content":      post.Content,
		"mediaType":    "text/html",
		"published":    post.ID.ToTime().UTC().Format(time.RFC3339),
		"to":           "https://www.w3.org/ns/activitystreams#Public",
		"cc":           uris.Followers(identifier),
		"url":          post.URI,
	}
}

// createActivity wraps a local post in its Create activity. Activities
// are synthesized on the fly, never persisted.
func createActivity(uris *URIs, identifier string, post *models.Post) map[string]any {
	note := noteObject(uris, identifier, post)
	return map[string]any{
		"@context":  "https://www.w3.org/ns/activitystreams",
		"id":        post.URI + "#activity",
		"type":      "Create",
		"actor":     uris.Actor(identifier),
		"published": note["published"],
		"to":        note["to"],
		"cc":        note["cc"],
		"object":    note,
	}
}

// SendPost creates a post for the local identifier and delivers the
// resulting Create(Note) to every follower inbox. The post row is
// created with a placeholder URI and rewritten once the object URI,
// which is derived from the post's assigned id, is known; between the
// two steps the post is unpublished and not dereferenceable. Delivery
// is awaited so failures can be reported to the caller.
func SendPost(ctx context.Context, env *Env, identifier, content string) (*models.Post, error) {
	if strings.TrimSpace(content) == "" {
		return nil, httpx.Error(http.StatusBadRequest, errors.New("content is required"))
	}
	user, err := models.NewUsers(env.DB).FindByUsername(identifier)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, httpx.Error(http.StatusNotFound, fmt.Errorf("no such user: %s", identifier))
		}
		return nil, err
	}

	uris := env.URIs()
	post := &models.Post{
		ID:      snowflake.Now(),
		ActorID: user.ActorID,
		// unique placeholder, rewritten below once the object URI is known
		URI:     fmt.Sprintf("https://%s/?pending=%s", env.Domain, uuid.New()),
		Content: html.EscapeString(content),
	}
	if err := env.DB.Create(post).Error; err != nil {
		return nil, err
	}
	uri := uris.Post(identifier, post.ID)
	if err := models.NewPosts(env.DB).UpdateURI(post.ID, uri); err != nil {
		return nil, err
	}
	post.URI = uri
	post.URL = uri

	followers, err := models.NewFollows(env.DB).Followers(user.ActorID)
	if err != nil {
		return nil, err
	}
	if len(followers) == 0 {
		return post, nil
	}

	client, err := NewClient(env, identifier)
	if err != nil {
		return nil, err
	}
	activity := createActivity(uris, identifier, post)

	var errs []error
	for _, inbox := range deliveryInboxes(followers) {
		if err := client.Post(ctx, inbox, activity); err != nil {
			env.Log.Error("failed to deliver post", "inbox", inbox, "err", err)
			errs = append(errs, fmt.Errorf("deliver to %s: %w", inbox, err))
		}
	}
	return post, errors.Join(errs...)
}

// deliveryInboxes returns the distinct inboxes for a set of recipients,
// preferring shared inboxes.
func deliveryInboxes(actors []*models.Actor) []string {
	seen := make(map[string]bool, len(actors))
	return algorithms.Filter(
		algorithms.Map(actors, (*models.Actor).Inbox),
		func(inbox string) bool {
			if inbox == "" || seen[inbox] {
				return false
			}
			seen[inbox] = true
			return true
		})
}

// SendFollow resolves the target handle or URI and delivers a Follow
// request from the local identifier. The follow edge is not recorded
// here; it is created when the remote actor's Accept arrives.
func SendFollow(ctx context.Context, env *Env, identifier, target string) error {
	if strings.TrimSpace(target) == "" {
		return httpx.Error(http.StatusBadRequest, errors.New("actor handle or URI is required"))
	}
	if _, err := models.NewUsers(env.DB).FindByUsername(identifier); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httpx.Error(http.StatusNotFound, fmt.Errorf("no such user: %s", identifier))
		}
		return err
	}

	props, err := LookupActor(ctx, env, identifier, target)
	if err != nil {
		return httpx.Error(http.StatusBadRequest, fmt.Errorf("invalid actor handle or URI: %w", err))
	}
	targetURI := stringFromAny(props["id"])
	inbox := stringFromAny(props["inbox"])

	uris := env.URIs()
	client, err := NewClient(env, identifier)
	if err != nil {
		return err
	}
	return client.Post(ctx, inbox, map[string]any{
		"@context": "https://www.w3.org/ns/activitystreams",
		"id":       fmt.Sprintf("%s#follows/%s", uris.Actor(identifier), uuid.New()),
		"type":     "Follow",
		"actor":    uris.Actor(identifier),
		"object":   targetURI,
		"to":       targetURI,
	})
}
