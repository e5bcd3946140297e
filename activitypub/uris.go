package activitypub

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/nettle-social/nettle/internal/snowflake"
)

// URIs builds and parses the URIs this server publishes. Every URI is
// derived deterministically from the identifier and the server's own
// domain, so repeated calls are idempotent.
type URIs struct {
	domain string
}

func NewURIs(domain string) *URIs {
	return &URIs{domain: domain}
}

// Actor returns the actor id URI for a local identifier.
func (u *URIs) Actor(identifier string) string {
	return fmt.Sprintf("https://%s/users/%s", u.domain, identifier)
}

// Inbox returns the per-actor inbox URI.
func (u *URIs) Inbox(identifier string) string {
	return u.Actor(identifier) + "/inbox"
}

// SharedInbox returns the instance-wide inbox URI.
func (u *URIs) SharedInbox() string {
	return fmt.Sprintf("https://%s/inbox", u.domain)
}

// Outbox returns the outbox collection URI.
func (u *URIs) Outbox(identifier string) string {
	return u.Actor(identifier) + "/outbox"
}

// Followers returns the followers collection URI.
func (u *URIs) Followers(identifier string) string {
	return u.Actor(identifier) + "/followers"
}

// Following returns the following collection URI.
func (u *URIs) Following(identifier string) string {
	return u.Actor(identifier) + "/following"
}

// Post returns the object URI for a local post.
func (u *URIs) Post(identifier string, id snowflake.ID) string {
	return fmt.Sprintf("%s/posts/%d", u.Actor(identifier), id)
}

// Key returns the id of the actor's HTTP signature key.
func (u *URIs) Key(identifier string) string {
	return u.Actor(identifier) + "#main-key"
}

// ParseActor reports whether uri is one of this server's actor URIs,
// and if so returns the local identifier it names.
func (u *URIs) ParseActor(uri string) (string, bool) {
	parsed, err := url.Parse(uri)
	if err != nil {
		return "", false
	}
	if parsed.Host != u.domain {
		return "", false
	}
	identifier, ok := strings.CutPrefix(parsed.Path, "/users/")
	if !ok || identifier == "" || strings.Contains(identifier, "/") {
		return "", false
	}
	return identifier, true
}
