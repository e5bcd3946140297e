package activitypub

import (
	"context"
	stdcrypto "crypto"
	"fmt"
	"net/http"

	"github.com/carlmjohnson/requests"
	"github.com/go-json-experiment/json"
	"github.com/nettle-social/nettle/internal/httpsig"
)

// Client is an ActivityPub client which can be used to fetch remote
// ActivityPub resources and deliver activities. All requests are
// signed with a local actor's HTTP signature key.
type Client struct {
	keyID      string
	privateKey stdcrypto.PrivateKey
}

// NewClient returns a client signing as the given local identifier.
// The identifier must resolve to a local user with key material.
func NewClient(env *Env, identifier string) (*Client, error) {
	pairs, err := KeyPairs(env, identifier)
	if err != nil {
		return nil, err
	}
	if len(pairs) == 0 {
		return nil, fmt.Errorf("no key material for %q", identifier)
	}
	return &Client{
		keyID:      env.URIs().Key(identifier),
		privateKey: pairs[0].PrivateKey,
	}, nil
}

// Fetch fetches the ActivityPub resource at the given URI and decodes it into obj.
func (c *Client) Fetch(ctx context.Context, uri string, obj interface{}) error {
	return requests.URL(uri).
		Accept(`application/ld+json; profile="https://www.w3.org/ns/activitystreams"`).
		Transport(requests.RoundTripFunc(func(req *http.Request) (*http.Response, error) {
			if err := httpsig.Sign(req, c.keyID, c.privateKey, nil); err != nil {
				return nil, fmt.Errorf("failed to sign request: %w", err)
			}
			return http.DefaultTransport.RoundTrip(req)
		})).
		CheckContentType(
			"application/ld+json",
			"application/activity+json",
			"application/json",
		).
		CheckStatus(http.StatusOK).
		ToJSON(obj).
		Fetch(ctx)
}

// Post delivers the given activity to the given inbox.
func (c *Client) Post(ctx context.Context, inbox string, activity map[string]any) error {
	body, err := json.Marshal(activity)
	if err != nil {
		return err
	}
	return requests.URL(inbox).
		BodyBytes(body).
		Header("Content-Type", `application/ld+json; profile="https://www.w3.org/ns/activitystreams"`).
		Transport(requests.RoundTripFunc(func(req *http.Request) (*http.Response, error) {
			if err := httpsig.Sign(req, c.keyID, c.privateKey, body); err != nil {
				return nil, fmt.Errorf("failed to sign request: %w", err)
			}
			return http.DefaultTransport.RoundTrip(req)
		})).
		CheckStatus(http.StatusOK, http.StatusCreated, http.StatusAccepted).
		Fetch(ctx)
}
