// Package activitypub implements the federation core of the server:
// actor dispatch, key management, inbox processing, outbox emission and
// the follower/following collections. Everything here is a stateless
// request processor over the database; protocol state is the follow
// graph itself.
package activitypub

import (
	"github.com/charmbracelet/log"
	"gorm.io/gorm"
)

// Env carries the dependencies shared by all federation handlers.
type Env struct {
	// DB is the database connection.
	DB *gorm.DB
	// Domain is the host this server federates as.
	Domain string
	// Log receives protocol events. Validation misses on inbound
	// activities are logged at debug level and are not errors.
	Log *log.Logger
}

// URIs returns the deterministic URI builder for this server.
func (e *Env) URIs() *URIs {
	return NewURIs(e.Domain)
}

func stringFromAny(v any) string {
	s, _ := v.(string)
	return s
}

func mapFromAny(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

// objectID returns the id of an ActivityStreams object reference, which
// may be a bare URI string or an embedded object.
func objectID(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case map[string]any:
		return stringFromAny(v["id"])
	default:
		return ""
	}
}
