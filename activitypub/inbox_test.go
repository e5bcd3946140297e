package activitypub

import (
	"context"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/nettle-social/nettle/models"
	"github.com/stretchr/testify/require"
)

func TestInboxFollow(t *testing.T) {
	require := require.New(t)
	env := testEnv(t)
	alice := models.MockUser(t, env.DB, "alice", env.Domain)
	bob := newTestPeer(t, "bob")

	activity := map[string]any{
		"@context": "https://www.w3.org/ns/activitystreams",
		"id":       bob.URI() + "#follow/1",
		"type":     "Follow",
		"actor":    bob.URI(),
		"object":   "https://example.com/users/alice",
	}
	require.NoError(inboxFollow(context.Background(), env, activity))

	count, err := models.NewFollows(env.DB).CountFollowers(alice.ActorID)
	require.NoError(err)
	require.EqualValues(1, count)

	follower, err := models.NewActors(env.DB).FindByURI(bob.URI())
	require.NoError(err)
	require.Equal("@bob@"+strings.TrimPrefix(bob.srv.URL, "http://"), follower.Handle)

	delivered := bob.Delivered()
	require.Len(delivered, 1)
	accept := delivered[0]
	require.Equal("Accept", accept["type"])
	require.Equal("https://example.com/users/alice", accept["actor"])
	require.Equal(bob.URI(), accept["to"])
	object, ok := accept["object"].(map[string]any)
	require.True(ok)
	require.Equal("Follow", object["type"])
	require.Equal(bob.URI(), object["actor"])
}

func TestInboxFollowUnknownLocalActor(t *testing.T) {
	require := require.New(t)
	env := testEnv(t)
	bob := newTestPeer(t, "bob")

	activity := map[string]any{
		"type":   "Follow",
		"actor":  bob.URI(),
		"object": "https://example.com/users/nobody",
	}
	require.NoError(inboxFollow(context.Background(), env, activity))

	// nothing fetched, nothing sent, nothing stored
	require.Zero(bob.Fetches())
	require.Empty(bob.Delivered())
	var count int64
	require.NoError(env.DB.Model(&models.Follow{}).Count(&count).Error)
	require.Zero(count)
}

func TestInboxFollowForeignObject(t *testing.T) {
	require := require.New(t)
	env := testEnv(t)
	models.MockUser(t, env.DB, "alice", env.Domain)
	bob := newTestPeer(t, "bob")

	activity := map[string]any{
		"type":   "Follow",
		"actor":  bob.URI(),
		"object": "https://other.example/users/alice",
	}
	require.NoError(inboxFollow(context.Background(), env, activity))
	require.Empty(bob.Delivered())
}

func TestInboxFollowRedelivery(t *testing.T) {
	require := require.New(t)
	env := testEnv(t)
	alice := models.MockUser(t, env.DB, "alice", env.Domain)
	bob := newTestPeer(t, "bob")

	activity := map[string]any{
		"id":     bob.URI() + "#follow/1",
		"type":   "Follow",
		"actor":  bob.URI(),
		"object": "https://example.com/users/alice",
	}
	require.NoError(inboxFollow(context.Background(), env, activity))
	require.NoError(inboxFollow(context.Background(), env, activity))

	// the edge collapses, the Accept is re-sent
	count, err := models.NewFollows(env.DB).CountFollowers(alice.ActorID)
	require.NoError(err)
	require.EqualValues(1, count)

	// the Accept id is derived from the Follow, so the redelivered
	// Accept is the same activity
	delivered := bob.Delivered()
	require.Len(delivered, 2)
	id, ok := delivered[0]["id"].(string)
	require.True(ok)
	require.Equal("https://example.com/users/alice#accepts/"+url.QueryEscape(bob.URI()+"#follow/1"), id)
	require.Equal(id, delivered[1]["id"])
}

func TestInboxUndo(t *testing.T) {
	require := require.New(t)
	env := testEnv(t)
	alice := models.MockUser(t, env.DB, "alice", env.Domain)
	bob := models.MockActor(t, env.DB, "bob", "remote.example")
	require.NoError(models.NewFollows(env.DB).Create(alice.ActorID, bob.ID))

	activity := map[string]any{
		"type":  "Undo",
		"actor": bob.URI,
		"object": map[string]any{
			"type":   "Follow",
			"actor":  bob.URI,
			"object": "https://example.com/users/alice",
		},
	}
	require.NoError(inboxUndo(context.Background(), env, activity))

	count, err := models.NewFollows(env.DB).CountFollowers(alice.ActorID)
	require.NoError(err)
	require.Zero(count)
}

func TestInboxUndoUnknownFollower(t *testing.T) {
	require := require.New(t)
	env := testEnv(t)
	models.MockUser(t, env.DB, "alice", env.Domain)

	activity := map[string]any{
		"type":  "Undo",
		"actor": "https://remote.example/users/ghost",
		"object": map[string]any{
			"type":   "Follow",
			"object": "https://example.com/users/alice",
		},
	}
	require.NoError(inboxUndo(context.Background(), env, activity))
}

func TestInboxUndoNotAFollow(t *testing.T) {
	require := require.New(t)
	env := testEnv(t)
	alice := models.MockUser(t, env.DB, "alice", env.Domain)
	bob := models.MockActor(t, env.DB, "bob", "remote.example")
	require.NoError(models.NewFollows(env.DB).Create(alice.ActorID, bob.ID))

	activity := map[string]any{
		"type":  "Undo",
		"actor": bob.URI,
		"object": map[string]any{
			"type": "Like",
		},
	}
	require.NoError(inboxUndo(context.Background(), env, activity))

	count, err := models.NewFollows(env.DB).CountFollowers(alice.ActorID)
	require.NoError(err)
	require.EqualValues(1, count)
}

func TestInboxAccept(t *testing.T) {
	require := require.New(t)
	env := testEnv(t)
	alice := models.MockUser(t, env.DB, "alice", env.Domain)
	bob := newTestPeer(t, "bob")

	activity := map[string]any{
		"type":  "Accept",
		"actor": bob.URI(),
		"object": map[string]any{
			"type":   "Follow",
			"actor":  "https://example.com/users/alice",
			"object": bob.URI(),
		},
	}
	require.NoError(inboxAccept(context.Background(), env, activity))

	count, err := models.NewFollows(env.DB).CountFollowing(alice.ActorID)
	require.NoError(err)
	require.EqualValues(1, count)

	following, err := models.NewFollows(env.DB).Following(alice.ActorID)
	require.NoError(err)
	require.Len(following, 1)
	require.Equal(bob.URI(), following[0].URI)
}

func TestInboxAcceptForeignFollower(t *testing.T) {
	require := require.New(t)
	env := testEnv(t)
	models.MockUser(t, env.DB, "alice", env.Domain)
	bob := newTestPeer(t, "bob")

	activity := map[string]any{
		"type":  "Accept",
		"actor": bob.URI(),
		"object": map[string]any{
			"type":   "Follow",
			"actor":  "https://other.example/users/carol",
			"object": bob.URI(),
		},
	}
	require.NoError(inboxAccept(context.Background(), env, activity))
	require.Zero(bob.Fetches())
}

func TestInboxCreate(t *testing.T) {
	require := require.New(t)
	env := testEnv(t)
	models.MockUser(t, env.DB, "alice", env.Domain)
	bob := newTestPeer(t, "bob")

	noteURI := bob.srv.URL + "/notes/1"
	activity := map[string]any{
		"type":  "Create",
		"actor": bob.URI(),
		"object": map[string]any{
			"type":         "Note",
			"id":           noteURI,
			"attributedTo": bob.URI(),
			"content":      "<p>hello from bob</p>",
			"url":          noteURI,
			"published":    "2024-03-01T12:00:00Z",
		},
	}
	require.NoError(inboxCreate(context.Background(), env, activity))

	author, err := models.NewActors(env.DB).FindByURI(bob.URI())
	require.NoError(err)
	posts, err := models.NewPosts(env.DB).FindByActor(author.ID, 10)
	require.NoError(err)
	require.Len(posts, 1)
	require.Equal(noteURI, posts[0].URI)
	require.Equal("<p>hello from bob</p>", posts[0].Content)
}

func TestInboxCreateRedelivery(t *testing.T) {
	require := require.New(t)
	env := testEnv(t)
	models.MockUser(t, env.DB, "alice", env.Domain)
	bob := newTestPeer(t, "bob")

	noteURI := bob.srv.URL + "/notes/1"
	activity := map[string]any{
		"type":  "Create",
		"actor": bob.URI(),
		"object": map[string]any{
			"type":         "Note",
			"id":           noteURI,
			"attributedTo": bob.URI(),
			"content":      "<p>hello again</p>",
		},
	}
	require.NoError(inboxCreate(context.Background(), env, activity))
	require.NoError(inboxCreate(context.Background(), env, activity))

	var count int64
	require.NoError(env.DB.Model(&models.Post{}).Count(&count).Error)
	require.EqualValues(1, count)
}

func TestInboxCreateSpoofedAttribution(t *testing.T) {
	require := require.New(t)
	env := testEnv(t)
	models.MockUser(t, env.DB, "alice", env.Domain)
	bob := newTestPeer(t, "bob")

	activity := map[string]any{
		"type":  "Create",
		"actor": bob.URI(),
		"object": map[string]any{
			"type":         "Note",
			"id":           bob.srv.URL + "/notes/1",
			"attributedTo": "https://other.example/users/mallory",
			"content":      "<p>not really from bob</p>",
		},
	}
	require.NoError(inboxCreate(context.Background(), env, activity))

	// dropped before any fetch or store
	require.Zero(bob.Fetches())
	var count int64
	require.NoError(env.DB.Model(&models.Post{}).Count(&count).Error)
	require.Zero(count)
}

func TestInboxCreateNotANote(t *testing.T) {
	require := require.New(t)
	env := testEnv(t)
	models.MockUser(t, env.DB, "alice", env.Domain)
	bob := newTestPeer(t, "bob")

	activity := map[string]any{
		"type":  "Create",
		"actor": bob.URI(),
		"object": map[string]any{
			"type": "Video",
			"id":   bob.srv.URL + "/videos/1",
		},
	}
	require.NoError(inboxCreate(context.Background(), env, activity))
	require.Zero(bob.Fetches())
}

func TestInboxCreateHandlerDropsUnsignedRequests(t *testing.T) {
	require := require.New(t)
	env := testEnv(t)
	models.MockUser(t, env.DB, "alice", env.Domain)

	handler := InboxCreate(InboxHandlers())
	req := httptest.NewRequest("POST", "/inbox", strings.NewReader(`{"type":"Follow"}`))
	w := httptest.NewRecorder()
	require.NoError(handler(env, w, req))

	// accepted and dropped: no signature, no processing
	require.Equal(202, w.Code)
	var count int64
	require.NoError(env.DB.Model(&models.Follow{}).Count(&count).Error)
	require.Zero(count)
}
