package activitypub

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-json-experiment/json"
	"github.com/nettle-social/nettle/internal/httpx"
	"github.com/nettle-social/nettle/internal/snowflake"
	"github.com/nettle-social/nettle/models"
	"github.com/stretchr/testify/require"
)

func TestPostShow(t *testing.T) {
	require := require.New(t)
	env := testEnv(t)
	models.MockUser(t, env.DB, "alice", env.Domain)
	post, err := SendPost(context.Background(), env, "alice", "hello")
	require.NoError(err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", fmt.Sprintf("/users/alice/posts/%d", post.ID), nil)
	require.NoError(serveRouted(env, w, req))

	require.Equal(http.StatusOK, w.Code)
	var note map[string]any
	require.NoError(json.Unmarshal(w.Body.Bytes(), &note))
	require.Equal("Note", note["type"])
	require.Equal(post.URI, note["id"])
	require.Equal("hello", note["content"])
	require.Equal("https://example.com/users/alice", note["attributedTo"])
}

func TestPostShowUnpublished(t *testing.T) {
	require := require.New(t)
	env := testEnv(t)
	alice := models.MockUser(t, env.DB, "alice", env.Domain)

	// a post whose URI was never rewritten from its placeholder
	post := &models.Post{
		ID:      snowflake.Now(),
		ActorID: alice.ActorID,
		URI:     "https://example.com/?pending=deadbeef",
		Content: "not yet published",
	}
	require.NoError(env.DB.Create(post).Error)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", fmt.Sprintf("/users/alice/posts/%d", post.ID), nil)
	err := serveRouted(env, w, req)
	var se *httpx.StatusError
	require.ErrorAs(err, &se)
	require.Equal(http.StatusNotFound, se.Status())
}

func TestPostShowWrongActor(t *testing.T) {
	require := require.New(t)
	env := testEnv(t)
	models.MockUser(t, env.DB, "alice", env.Domain)
	models.MockUser(t, env.DB, "carol", env.Domain)
	post, err := SendPost(context.Background(), env, "alice", "mine")
	require.NoError(err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", fmt.Sprintf("/users/carol/posts/%d", post.ID), nil)
	routeErr := serveRouted(env, w, req)
	var se *httpx.StatusError
	require.ErrorAs(routeErr, &se)
	require.Equal(http.StatusNotFound, se.Status())
}

func TestPostShowUnknownPost(t *testing.T) {
	require := require.New(t)
	env := testEnv(t)
	models.MockUser(t, env.DB, "alice", env.Domain)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/users/alice/posts/12345", nil)
	err := serveRouted(env, w, req)
	var se *httpx.StatusError
	require.ErrorAs(err, &se)
	require.Equal(http.StatusNotFound, se.Status())
}
