// Package wellknown serves the discovery endpoints remote servers use
// to resolve handles on this instance to actor URIs.
package wellknown

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-json-experiment/json"
	"github.com/nettle-social/nettle/activitypub"
	"github.com/nettle-social/nettle/internal/httpx"
	"github.com/nettle-social/nettle/internal/webfinger"
	"github.com/nettle-social/nettle/models"
	"gorm.io/gorm"
)

// Webfinger resolves an acct: resource to the actor URI for a local
// user.
func Webfinger(env *activitypub.Env, w http.ResponseWriter, r *http.Request) error {
	acct, err := webfinger.Parse(r.URL.Query().Get("resource"))
	if err != nil {
		return httpx.Error(http.StatusBadRequest, err)
	}

	if _, err := models.NewUsers(env.DB).FindByUsername(acct.User); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httpx.Error(http.StatusNotFound, fmt.Errorf("no such user: %s", acct.User))
		}
		return err
	}

	self := env.URIs().Actor(acct.User)
	w.Header().Set("Content-Type", "application/jrd+json")
	return json.MarshalFull(w, map[string]any{
		"subject": fmt.Sprintf("acct:%s@%s", acct.User, env.Domain),
		"aliases": []string{self},
		"links": []map[string]any{
			{
				"rel":  "self",
				"type": "application/activity+json",
				"href": self,
			},
		},
	})
}

// HostMeta points lrdd lookups at the webfinger endpoint.
func HostMeta(env *activitypub.Env, w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "application/xrd+xml")
	_, err := io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?>
		<XRD xmlns="http://docs.oasis-open.org/ns/xri/xrd-1.0">
		<Subject>`+env.Domain+`</Subject>
		<Link rel="lrdd" template="https://`+env.Domain+`/.well-known/webfinger?resource={uri}"/>
		</XRD>`)
	return err
}
