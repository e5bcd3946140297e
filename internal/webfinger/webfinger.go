// Package webfinger implements client-side webfinger resolution of
// @user@host handles to ActivityPub actor URIs.
package webfinger

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/carlmjohnson/requests"
)

type Webfinger struct {
	Subject string   `json:"subject"`
	Aliases []string `json:"aliases"`
	Links   []Link   `json:"links"`
}

type Link struct {
	Rel      string `json:"rel"`
	Type     string `json:"type"`
	Href     string `json:"href"`
	Template string `json:"template"`
}

// ActivityPub returns the actor URI advertised by the webfinger document.
func (wf *Webfinger) ActivityPub() (string, error) {
	for _, link := range wf.Links {
		if link.Type == "application/activity+json" {
			return link.Href, nil
		}
	}
	return "", fmt.Errorf("no ActivityPub link found")
}

// Acct is a user@host pair.
type Acct struct {
	User string
	Host string
}

func (a *Acct) String() string {
	return "acct:" + a.User + "@" + a.Host
}

// Webfinger returns the URL of the webfinger resource for this Acct.
func (a *Acct) Webfinger() string {
	return "https://" + a.Host + "/.well-known/webfinger?resource=" + url.QueryEscape(a.String())
}

// ID returns the actor URI for this Acct.
func (a *Acct) ID() string {
	return "https://" + a.Host + "/users/" + a.User
}

// Inbox returns the inbox URI for this Acct.
func (a *Acct) Inbox() string {
	return a.ID() + "/inbox"
}

// Followers returns the followers collection URI for this Acct.
func (a *Acct) Followers() string {
	return a.ID() + "/followers"
}

// Following returns the following collection URI for this Acct.
func (a *Acct) Following() string {
	return a.ID() + "/following"
}

// Fetch retrieves the webfinger document for this Acct.
func (a *Acct) Fetch(ctx context.Context) (*Webfinger, error) {
	var webfinger Webfinger
	err := requests.URL(a.Webfinger()).ToJSON(&webfinger).Fetch(ctx)
	return &webfinger, err
}

// Parse parses a handle of the form user@host, @user@host or acct:user@host.
func Parse(query string) (*Acct, error) {
	query = strings.TrimPrefix(query, "acct:")
	query = strings.TrimPrefix(query, "@")

	// in case the handle has been URL encoded
	query, err := url.QueryUnescape(query)
	if err != nil {
		return nil, err
	}
	parts := strings.SplitN(query, "@", 2)
	if parts[0] == "" {
		return nil, fmt.Errorf("invalid acct: %q", query)
	}
	if len(parts) == 1 {
		return &Acct{
			User: parts[0],
		}, nil
	}
	return &Acct{
		User: parts[0],
		Host: parts[1],
	}, nil
}
