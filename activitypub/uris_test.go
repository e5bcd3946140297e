package activitypub

import (
	"testing"

	"github.com/nettle-social/nettle/internal/snowflake"
	"github.com/stretchr/testify/require"
)

func TestURIs(t *testing.T) {
	require := require.New(t)
	uris := NewURIs("example.com")

	require.Equal("https://example.com/users/alice", uris.Actor("alice"))
	require.Equal("https://example.com/users/alice/inbox", uris.Inbox("alice"))
	require.Equal("https://example.com/inbox", uris.SharedInbox())
	require.Equal("https://example.com/users/alice/outbox", uris.Outbox("alice"))
	require.Equal("https://example.com/users/alice/followers", uris.Followers("alice"))
	require.Equal("https://example.com/users/alice/following", uris.Following("alice"))
	require.Equal("https://example.com/users/alice#main-key", uris.Key("alice"))
	require.Equal("https://example.com/users/alice/posts/12345", uris.Post("alice", snowflake.ID(12345)))
}

func TestURIsParseActor(t *testing.T) {
	require := require.New(t)
	uris := NewURIs("example.com")

	identifier, ok := uris.ParseActor("https://example.com/users/alice")
	require.True(ok)
	require.Equal("alice", identifier)

	for _, uri := range []string{
		"https://example.com/users/",
		"https://example.com/users/alice/followers",
		"https://other.example/users/alice",
		"https://example.com/inbox",
		"not a uri at all\x7f",
		"",
	} {
		_, ok := uris.ParseActor(uri)
		require.False(ok, "expected %q to be rejected", uri)
	}
}
