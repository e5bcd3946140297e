package activitypub

import (
	"bytes"
	"context"
	stdcrypto "crypto"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-fed/httpsig"
	"github.com/go-json-experiment/json"
	"github.com/google/uuid"
	"github.com/nettle-social/nettle/internal/crypto"
	"github.com/nettle-social/nettle/internal/snowflake"
	"github.com/nettle-social/nettle/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// An InboxHandler processes one kind of inbound activity. Handlers are
// stateless across invocations and must be safe to invoke more than
// once for the same logical activity; the delivery transport retries.
type InboxHandler func(ctx context.Context, env *Env, activity map[string]any) error

// InboxHandlers returns the dispatch table mapping activity kind to
// handler. Built once at startup and carried in the router
// configuration; there is no ambient registration.
func InboxHandlers() map[string]InboxHandler {
	return map[string]InboxHandler{
		"Follow": inboxFollow,
		"Undo":   inboxUndo,
		"Accept": inboxAccept,
		"Create": inboxCreate,
	}
}

// InboxCreate handles an inbound activity delivery. Inbound activities
// are adversarial input from untrusted servers: a bad signature, an
// unknown kind, or a handler's validation miss is dropped with a 202,
// never surfaced to the sender, so a misbehaving peer learns nothing
// and a well behaved one does not retry garbage forever.
func InboxCreate(handlers map[string]InboxHandler) func(*Env, http.ResponseWriter, *http.Request) error {
	return func(env *Env, w http.ResponseWriter, r *http.Request) error {
		body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			return err
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		accepted := func() error {
			w.WriteHeader(http.StatusAccepted)
			return nil
		}

		if err := verifySignature(r, env); err != nil {
			env.Log.Debug("inbox signature verification failed", "err", err)
			return accepted()
		}

		var activity map[string]any
		if err := json.Unmarshal(body, &activity); err != nil {
			env.Log.Debug("inbox body is not valid JSON", "err", err)
			return accepted()
		}

		kind := stringFromAny(activity["type"])
		handler, ok := handlers[kind]
		if !ok {
			env.Log.Debug("unsupported activity kind", "kind", kind)
			return accepted()
		}
		if err := handler(r.Context(), env, activity); err != nil {
			// processing errors are logged, not returned to the sender
			env.Log.Error("inbox processing failed", "kind", kind, "err", err)
		}
		return accepted()
	}
}

// verifySignature checks the draft-cavage HTTP signature against the
// sender's published key, fetched from the keyId's actor document.
func verifySignature(r *http.Request, env *Env) error {
	verifier, err := httpsig.NewVerifier(r)
	if err != nil {
		return err
	}
	pubKey, err := fetchPublicKey(r.Context(), env, verifier.KeyId())
	if err != nil {
		return err
	}
	return verifier.Verify(pubKey, httpsig.RSA_SHA256)
}

// fetchPublicKey resolves a signature keyId to a public key by
// fetching the owning actor's document.
func fetchPublicKey(ctx context.Context, env *Env, keyID string) (stdcrypto.PublicKey, error) {
	client, err := anySigner(env)
	if err != nil {
		return nil, err
	}
	var props map[string]any
	if err := client.Fetch(ctx, trimKeyID(keyID), &props); err != nil {
		return nil, err
	}
	pem := stringFromAny(mapFromAny(props["publicKey"])["publicKeyPem"])
	if pem == "" {
		return nil, fmt.Errorf("actor document for %s has no public key", keyID)
	}
	return crypto.ParsePublicKey([]byte(pem))
}

// trimKeyID removes the fragment from a key id.
func trimKeyID(id string) string {
	if i := strings.Index(id, "#"); i != -1 {
		return id[:i]
	}
	return id
}

// inboxFollow handles Follow: a remote actor asks to follow a local
// one. On success one follow edge exists and one Accept has been sent
// back to the follower's inbox. Every precondition miss is a silent
// no-op.
func inboxFollow(ctx context.Context, env *Env, activity map[string]any) error {
	uris := env.URIs()

	identifier, ok := uris.ParseActor(objectID(activity["object"]))
	if !ok {
		env.Log.Debug("Follow object is not a local actor", "object", activity["object"])
		return nil
	}
	user, err := models.NewUsers(env.DB).FindByUsername(identifier)
	if err != nil {
		env.Log.Debug("Follow target does not exist locally", "identifier", identifier)
		return nil
	}

	followerURI := stringFromAny(activity["actor"])
	if followerURI == "" {
		env.Log.Debug("Follow has no actor")
		return nil
	}
	client, err := NewClient(env, identifier)
	if err != nil {
		return err
	}
	var props map[string]any
	if err := client.Fetch(ctx, followerURI, &props); err != nil {
		env.Log.Debug("failed to fetch follower", "uri", followerURI, "err", err)
		return nil
	}
	if !isActor(props) {
		env.Log.Debug("Follow actor is not actor shaped", "uri", followerURI)
		return nil
	}
	follower, result := persistActor(env, props)
	if result == persistFailed {
		return nil
	}

	if err := models.NewFollows(env.DB).Create(user.ActorID, follower.ID); err != nil {
		return err
	}

	// Deriving the id from the Follow keeps re-sent Accepts
	// idempotent on the wire.
	suffix := url.QueryEscape(stringFromAny(activity["id"]))
	if suffix == "" {
		suffix = uuid.New().String()
	}
	accept := map[string]any{
		"@context": "https://www.w3.org/ns/activitystreams",
		"id":       fmt.Sprintf("%s#accepts/%s", uris.Actor(identifier), suffix),
		"type":     "Accept",
		"actor":    uris.Actor(identifier),
		"to":       follower.URI,
		"object":   activity,
	}
	return client.Post(ctx, follower.InboxURL, accept)
}

// inboxUndo handles Undo(Follow): the wrapped Follow's object names the
// local actor being unfollowed, the Undo's actor is the follower.
func inboxUndo(ctx context.Context, env *Env, activity map[string]any) error {
	follow := mapFromAny(activity["object"])
	if stringFromAny(follow["type"]) != "Follow" {
		env.Log.Debug("Undo object is not a Follow")
		return nil
	}
	identifier, ok := env.URIs().ParseActor(objectID(follow["object"]))
	if !ok {
		env.Log.Debug("Undo Follow object is not a local actor")
		return nil
	}
	user, err := models.NewUsers(env.DB).FindByUsername(identifier)
	if err != nil {
		env.Log.Debug("Undo target does not exist locally", "identifier", identifier)
		return nil
	}
	followerURI := stringFromAny(activity["actor"])
	if followerURI == "" {
		env.Log.Debug("Undo has no actor")
		return nil
	}
	return models.NewFollows(env.DB).Delete(user.ActorID, followerURI)
}

// inboxAccept handles Accept(Follow): a remote actor has honoured a
// follow request a local actor sent earlier. The edge is recorded with
// the remote actor as the followed side.
func inboxAccept(ctx context.Context, env *Env, activity map[string]any) error {
	follow := mapFromAny(activity["object"])
	if stringFromAny(follow["type"]) != "Follow" {
		env.Log.Debug("Accept object is not a Follow")
		return nil
	}
	identifier, ok := env.URIs().ParseActor(stringFromAny(follow["actor"]))
	if !ok {
		env.Log.Debug("Accept Follow actor is not a local actor")
		return nil
	}
	user, err := models.NewUsers(env.DB).FindByUsername(identifier)
	if err != nil {
		env.Log.Debug("Accept follower does not exist locally", "identifier", identifier)
		return nil
	}

	acceptingURI := stringFromAny(activity["actor"])
	if acceptingURI == "" {
		env.Log.Debug("Accept has no actor")
		return nil
	}
	client, err := NewClient(env, identifier)
	if err != nil {
		return err
	}
	var props map[string]any
	if err := client.Fetch(ctx, acceptingURI, &props); err != nil {
		env.Log.Debug("failed to fetch accepting actor", "uri", acceptingURI, "err", err)
		return nil
	}
	if !isActor(props) {
		env.Log.Debug("Accept actor is not actor shaped", "uri", acceptingURI)
		return nil
	}
	following, result := persistActor(env, props)
	if result == persistFailed {
		return nil
	}

	return models.NewFollows(env.DB).Create(following.ID, user.ActorID)
}

// inboxCreate handles Create(Note): a post from a remote actor. The
// Create's actor must be the Note's attributed author, URI for URI;
// anything else is a spoofing attempt and is dropped.
func inboxCreate(ctx context.Context, env *Env, activity map[string]any) error {
	note := mapFromAny(activity["object"])
	if stringFromAny(note["type"]) != "Note" {
		env.Log.Debug("Create object is not a Note")
		return nil
	}
	noteURI := stringFromAny(note["id"])
	if noteURI == "" {
		env.Log.Debug("Create Note has no id")
		return nil
	}
	actorURI := stringFromAny(activity["actor"])
	if actorURI == "" || objectID(note["attributedTo"]) != actorURI {
		env.Log.Debug("Create actor does not match Note attribution", "actor", actorURI)
		return nil
	}

	client, err := anySigner(env)
	if err != nil {
		return err
	}
	var props map[string]any
	if err := client.Fetch(ctx, actorURI, &props); err != nil {
		env.Log.Debug("failed to fetch author", "uri", actorURI, "err", err)
		return nil
	}
	if !isActor(props) {
		env.Log.Debug("Create author is not actor shaped", "uri", actorURI)
		return nil
	}
	author, result := persistActor(env, props)
	if result == persistFailed {
		return nil
	}

	// keyed on the note URI, re-delivery of the same Create is a no-op
	return env.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "uri"}},
		DoNothing: true,
	}).Create(&models.Post{
		ID:      snowflake.TimeToID(publishedOrNow(note)),
		ActorID: author.ID,
		URI:     noteURI,
		URL:     stringFromAny(note["url"]),
		Content: stringFromAny(note["content"]),
	}).Error
}

// anySigner returns a client signing as an arbitrary local user, for
// requests that are not on behalf of a specific local actor, such as
// shared inbox key fetches.
func anySigner(env *Env) (*Client, error) {
	var user models.User
	if err := env.DB.Order("id").First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("no local users to sign as")
		}
		return nil, err
	}
	return NewClient(env, user.Username)
}
