package activitypub

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/go-json-experiment/json"
	"github.com/nettle-social/nettle/models"
	"github.com/stretchr/testify/require"
)

func testEnv(t *testing.T) *Env {
	t.Helper()
	return &Env{
		DB:     models.MockDB(t),
		Domain: "example.com",
		Log:    log.New(io.Discard),
	}
}

// testPeer is a fake remote server hosting a single actor. It serves
// the actor document and records every activity delivered to the
// actor's inbox.
type testPeer struct {
	srv  *httptest.Server
	name string

	mu        sync.Mutex
	delivered []map[string]any
	fetches   int
}

func newTestPeer(t *testing.T, name string) *testPeer {
	t.Helper()
	peer := &testPeer{name: name}
	mux := http.NewServeMux()
	mux.HandleFunc("/users/"+name, func(w http.ResponseWriter, r *http.Request) {
		peer.mu.Lock()
		peer.fetches++
		peer.mu.Unlock()
		w.Header().Set("Content-Type", "application/activity+json")
		json.MarshalFull(w, peer.actorDoc())
	})
	mux.HandleFunc("/users/"+name+"/inbox", func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var activity map[string]any
		require.NoError(t, json.Unmarshal(body, &activity))
		peer.mu.Lock()
		peer.delivered = append(peer.delivered, activity)
		peer.mu.Unlock()
		w.WriteHeader(http.StatusAccepted)
	})
	peer.srv = httptest.NewServer(mux)
	t.Cleanup(peer.srv.Close)
	return peer
}

func (p *testPeer) URI() string {
	return p.srv.URL + "/users/" + p.name
}

func (p *testPeer) InboxURL() string {
	return p.URI() + "/inbox"
}

func (p *testPeer) actorDoc() map[string]any {
	return map[string]any{
		"@context":          "https://www.w3.org/ns/activitystreams",
		"id":                p.URI(),
		"type":              "Person",
		"preferredUsername": p.name,
		"name":              p.name,
		"inbox":             p.InboxURL(),
		"url":               p.URI(),
	}
}

func (p *testPeer) Delivered() []map[string]any {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]map[string]any(nil), p.delivered...)
}

func (p *testPeer) Fetches() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fetches
}
