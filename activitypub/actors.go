package activitypub

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/nettle-social/nettle/internal/crypto"
	"github.com/nettle-social/nettle/internal/httpx"
	"github.com/nettle-social/nettle/internal/snowflake"
	"github.com/nettle-social/nettle/internal/to"
	"github.com/nettle-social/nettle/internal/webfinger"
	"github.com/nettle-social/nettle/models"
	"gorm.io/gorm"
)

// ActorShow serves the actor document for a local identifier. The
// document is the canonical federated identity; every URI in it is
// derived deterministically from the identifier and the server's own
// origin.
func ActorShow(env *Env, w http.ResponseWriter, r *http.Request) error {
	identifier := chi.URLParam(r, "username")
	user, err := models.NewUsers(env.DB).FindByUsername(identifier)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httpx.Error(http.StatusNotFound, fmt.Errorf("no such user: %s", identifier))
		}
		return err
	}

	keys, err := KeyPairs(env, identifier)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		// a local user without key material has no federated identity
		return httpx.Error(http.StatusNotFound, fmt.Errorf("no key material for %s", identifier))
	}

	uris := env.URIs()
	actorURI := uris.Actor(identifier)

	name := user.Actor.Name
	if name == "" {
		name = identifier
	}

	keyRows, err := keyRowsForUser(env, user)
	if err != nil {
		return err
	}

	var assertionMethods []map[string]any
	for i, pair := range keys {
		multibase, err := crypto.PublicKeyToMultibase(pair.PublicKey)
		if err != nil {
			return err
		}
		assertionMethods = append(assertionMethods, map[string]any{
			"id":                 fmt.Sprintf("%s#key-%d", actorURI, i),
			"type":               "Multikey",
			"controller":         actorURI,
			"publicKeyMultibase": multibase,
		})
	}

	return to.ActivityJSON(w, map[string]any{
		"@context": []any{
			"https://www.w3.org/ns/activitystreams",
			"https://w3id.org/security/v1",
			"https://w3id.org/security/data-integrity/v1",
		},
		"id":                actorURI,
		"type":              "Person",
		"preferredUsername": identifier,
		"name":              name,
		"inbox":             uris.Inbox(identifier),
		"outbox":            uris.Outbox(identifier),
		"endpoints": map[string]any{
			"sharedInbox": uris.SharedInbox(),
		},
		"url": actorURI,
		"publicKey": map[string]any{
			"id":           uris.Key(identifier),
			"owner":        actorURI,
			"publicKeyPem": string(keyRows[0].PublicKey),
		},
		"assertionMethod": assertionMethods,
		"followers":       uris.Followers(identifier),
		"following":       uris.Following(identifier),
	})
}

// keyRowsForUser returns the user's stored key rows in dispatch order.
// KeyPairs has already ensured they exist.
func keyRowsForUser(env *Env, user *models.User) ([]*models.Key, error) {
	var rows []*models.Key
	for _, typ := range crypto.KeyTypes {
		var key models.Key
		if err := env.DB.Where("user_id = ? AND type = ?", user.ID, string(typ)).Take(&key).Error; err != nil {
			return nil, err
		}
		rows = append(rows, &key)
	}
	return rows, nil
}

// LookupActor resolves a handle of the form @user@host, or a bare actor
// URI, to the remote actor's document. The fetch is signed as the given
// local identifier. The result is validated to be actor shaped.
func LookupActor(ctx context.Context, env *Env, signAs, handleOrURI string) (map[string]any, error) {
	uri := strings.TrimSpace(handleOrURI)
	if !strings.HasPrefix(uri, "https://") && !strings.HasPrefix(uri, "http://") {
		acct, err := webfinger.Parse(uri)
		if err != nil {
			return nil, err
		}
		wf, err := acct.Fetch(ctx)
		if err != nil {
			return nil, fmt.Errorf("webfinger lookup of %q failed: %w", handleOrURI, err)
		}
		uri, err = wf.ActivityPub()
		if err != nil {
			return nil, err
		}
	}

	client, err := NewClient(env, signAs)
	if err != nil {
		return nil, err
	}
	var props map[string]any
	if err := client.Fetch(ctx, uri, &props); err != nil {
		return nil, err
	}
	if !isActor(props) {
		return nil, fmt.Errorf("%q is not an actor", handleOrURI)
	}
	return props, nil
}

// isActor reports whether a fetched document is actor shaped: an actor
// type with a resolvable id and inbox.
func isActor(props map[string]any) bool {
	switch stringFromAny(props["type"]) {
	case "Person", "Service", "Application", "Group", "Organization":
	default:
		return false
	}
	return stringFromAny(props["id"]) != "" && stringFromAny(props["inbox"]) != ""
}

// persistResult reports the outcome of persisting a remote actor.
type persistResult int

const (
	persistFailed persistResult = iota
	persistCreated
	persistRefreshed
)

// persistActor upserts a remote actor record from its fetched document,
// keyed on the actor URI. A store failure is collapsed to a nil actor
// so callers can treat "failed to persist" the same as "not found";
// the distinct result values exist for tests and logging.
func persistActor(env *Env, props map[string]any) (*models.Actor, persistResult) {
	uri := stringFromAny(props["id"])
	inbox := stringFromAny(props["inbox"])
	if uri == "" || inbox == "" {
		env.Log.Debug("actor is missing required fields", "uri", uri)
		return nil, persistFailed
	}

	actors := models.NewActors(env.DB)
	_, findErr := actors.FindByURI(uri)

	actor, err := actors.Upsert(&models.Actor{
		ID:             snowflake.TimeToID(publishedOrNow(props)),
		URI:            uri,
		Handle:         actorHandle(props),
		Name:           stringFromAny(props["name"]),
		InboxURL:       inbox,
		SharedInboxURL: stringFromAny(mapFromAny(props["endpoints"])["sharedInbox"]),
		URL:            stringFromAny(props["url"]),
		AvatarURL:      stringFromAny(mapFromAny(props["icon"])["url"]),
	})
	if err != nil {
		env.Log.Error("failed to persist actor", "uri", uri, "err", err)
		return nil, persistFailed
	}
	if errors.Is(findErr, gorm.ErrRecordNotFound) {
		return actor, persistCreated
	}
	return actor, persistRefreshed
}

// actorHandle derives the @user@host handle from an actor document.
func actorHandle(props map[string]any) string {
	username := stringFromAny(props["preferredUsername"])
	host := ""
	if u, err := url.Parse(stringFromAny(props["id"])); err == nil {
		host = u.Host
	}
	return fmt.Sprintf("@%s@%s", username, host)
}

// publishedOrNow returns the document's published time, or now.
func publishedOrNow(props map[string]any) time.Time {
	if ts, err := time.Parse(time.RFC3339, stringFromAny(props["published"])); err == nil {
		return ts
	}
	return time.Now()
}
