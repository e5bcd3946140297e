package activitypub

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-json-experiment/json"
	"github.com/nettle-social/nettle/internal/httpx"
	"github.com/nettle-social/nettle/models"
	"github.com/stretchr/testify/require"
)

func TestActorShow(t *testing.T) {
	require := require.New(t)
	env := testEnv(t)
	models.MockUser(t, env.DB, "alice", env.Domain)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/users/alice", nil)
	require.NoError(serveRouted(env, w, req))

	require.Equal(http.StatusOK, w.Code)
	require.Equal("application/activity+json; charset=utf-8", w.Header().Get("Content-Type"))

	var actor map[string]any
	require.NoError(json.Unmarshal(w.Body.Bytes(), &actor))
	require.Equal("https://example.com/users/alice", actor["id"])
	require.Equal("Person", actor["type"])
	require.Equal("alice", actor["preferredUsername"])
	require.Equal("alice", actor["name"])
	require.Equal("https://example.com/users/alice/inbox", actor["inbox"])
	require.Equal("https://example.com/users/alice/outbox", actor["outbox"])
	require.Equal("https://example.com/users/alice/followers", actor["followers"])
	require.Equal("https://example.com/users/alice/following", actor["following"])

	endpoints, ok := actor["endpoints"].(map[string]any)
	require.True(ok)
	require.Equal("https://example.com/inbox", endpoints["sharedInbox"])

	publicKey, ok := actor["publicKey"].(map[string]any)
	require.True(ok)
	require.Equal("https://example.com/users/alice#main-key", publicKey["id"])
	require.Equal("https://example.com/users/alice", publicKey["owner"])
	pem, _ := publicKey["publicKeyPem"].(string)
	require.True(strings.HasPrefix(pem, "-----BEGIN PUBLIC KEY-----"))

	methods, ok := actor["assertionMethod"].([]any)
	require.True(ok)
	require.Len(methods, 2)
	for _, m := range methods {
		method := m.(map[string]any)
		require.Equal("Multikey", method["type"])
		require.Equal("https://example.com/users/alice", method["controller"])
		multibase, _ := method["publicKeyMultibase"].(string)
		require.True(strings.HasPrefix(multibase, "z"))
	}
}

func TestActorShowIsIdempotent(t *testing.T) {
	require := require.New(t)
	env := testEnv(t)
	user := models.MockUser(t, env.DB, "alice", env.Domain)

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/users/alice", nil)
		require.NoError(serveRouted(env, w, req))
		require.Equal(http.StatusOK, w.Code)
	}

	// key material was generated on the first dispatch and reused
	var count int64
	require.NoError(env.DB.Model(&models.Key{}).Where("user_id = ?", user.ID).Count(&count).Error)
	require.EqualValues(2, count)
}

func TestActorShowUnknownUser(t *testing.T) {
	require := require.New(t)
	env := testEnv(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/users/nobody", nil)
	err := serveRouted(env, w, req)
	var se *httpx.StatusError
	require.ErrorAs(err, &se)
	require.Equal(http.StatusNotFound, se.Status())
}

func TestLookupActorByURI(t *testing.T) {
	require := require.New(t)
	env := testEnv(t)
	models.MockUser(t, env.DB, "alice", env.Domain)
	bob := newTestPeer(t, "bob")

	props, err := LookupActor(context.Background(), env, "alice", bob.URI())
	require.NoError(err)
	require.Equal(bob.URI(), props["id"])
	require.Equal(bob.InboxURL(), props["inbox"])
}

func TestIsActor(t *testing.T) {
	require := require.New(t)

	require.True(isActor(map[string]any{
		"type":  "Person",
		"id":    "https://remote.example/users/bob",
		"inbox": "https://remote.example/users/bob/inbox",
	}))
	require.True(isActor(map[string]any{
		"type":  "Service",
		"id":    "https://remote.example/relay",
		"inbox": "https://remote.example/inbox",
	}))
	require.False(isActor(map[string]any{
		"type": "Note",
		"id":   "https://remote.example/notes/1",
	}))
	require.False(isActor(map[string]any{
		"type": "Person",
		"id":   "https://remote.example/users/bob",
	}))
	require.False(isActor(map[string]any{}))
}

func TestPersistActorRefreshesProfile(t *testing.T) {
	require := require.New(t)
	env := testEnv(t)

	doc := map[string]any{
		"id":                "https://remote.example/users/bob",
		"type":              "Person",
		"preferredUsername": "bob",
		"name":              "Bob",
		"inbox":             "https://remote.example/users/bob/inbox",
	}
	actor, result := persistActor(env, doc)
	require.Equal(persistCreated, result)
	require.Equal("@bob@remote.example", actor.Handle)
	require.Equal("Bob", actor.Name)

	doc["name"] = "Robert"
	doc["endpoints"] = map[string]any{"sharedInbox": "https://remote.example/inbox"}
	doc["icon"] = map[string]any{"type": "Image", "url": "https://remote.example/media/bob.png"}
	refreshed, result := persistActor(env, doc)
	require.Equal(persistRefreshed, result)
	require.Equal(actor.ID, refreshed.ID)
	require.Equal("Robert", refreshed.Name)
	require.Equal("https://remote.example/inbox", refreshed.SharedInboxURL)
	require.Equal("https://remote.example/media/bob.png", refreshed.AvatarURL)
}

func TestPersistActorMissingFields(t *testing.T) {
	require := require.New(t)
	env := testEnv(t)

	actor, result := persistActor(env, map[string]any{"type": "Person"})
	require.Equal(persistFailed, result)
	require.Nil(actor)
}
