package model

import (
	"errors"
	"strings"
	"testing"

	"github.com/tj/assert"
)

func TestValidateRoomID(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		assert.NoError(t, ValidateRoomID("acme-demo"))
		assert.NoError(t, ValidateRoomID("room42"))
	})

	t.Run("bad shape", func(t *testing.T) {
		for _, id := range []string{"", "Acme", "acme demo", "acme_demo", "acme.demo", "café"} {
			err := ValidateRoomID(id)
			assert.True(t, errors.Is(err, ErrRoomIDInvalid), id)
		}
	})

	t.Run("reserved", func(t *testing.T) {
		for _, id := range []string{"admin", "api", "www", "ws", "lineup-ninja"} {
			assert.True(t, errors.Is(ValidateRoomID(id), ErrRoomIDReserved), id)
		}
	})
}

func TestGrantValidate(t *testing.T) {
	assert.NoError(t, Grant{Mode: GrantModeLink, Text: "https://video.example/acme"}.Validate())
	assert.NoError(t, Grant{Mode: GrantModeText, Text: strings.Repeat("é", MaxGrantText)}.Validate())

	err := Grant{Mode: "VIDEO", Text: "x"}.Validate()
	assert.True(t, errors.Is(err, ErrGrantInvalid))

	err = Grant{Mode: GrantModeText, Text: strings.Repeat("a", MaxGrantText+1)}.Validate()
	assert.True(t, errors.Is(err, ErrGrantInvalid))
}

func TestValidateUserID(t *testing.T) {
	const region = "eu-west-2"

	testCases := map[string]bool{
		"eu-west-2:6f1c2a3e-8b6d-4c1e-9f0a-1b2c3d4e5f60":       true,
		"eu-west-2:6F1C2A3E-8B6D-4C1E-9F0A-1B2C3D4E5F60":       true,
		"us-east-1:6f1c2a3e-8b6d-4c1e-9f0a-1b2c3d4e5f60":       false,
		"6f1c2a3e-8b6d-4c1e-9f0a-1b2c3d4e5f60":                 false,
		"eu-west-2:6f1c2a3e8b6d4c1e9f0a1b2c3d4e5f60":           false,
		"eu-west-2:{6f1c2a3e-8b6d-4c1e-9f0a-1b2c3d4e5f60}":     false,
		"eu-west-2:urn:uuid:6f1c2a3e-8b6d-4c1e-9f0a-1b2c3d4e5f": false,
		"eu-west-2:not-a-uuid-at-all-not-a-uuid-at-all-xx":     false,
		"": false,
	}
	for userID, valid := range testCases {
		err := ValidateUserID(region, userID)
		if valid {
			assert.NoError(t, err, userID)
		} else {
			assert.True(t, errors.Is(err, ErrUserIDInvalid), userID)
		}
	}
}

func TestGuestTransition(t *testing.T) {
	grant := Grant{Mode: GrantModeLink, Text: "https://video.example/acme"}

	t.Run("pending to granted copies grant", func(t *testing.T) {
		g := NewGuest("acme-demo", "u1", "Alex", 100)
		assert.Equal(t, GuestPending, g.State)
		assert.Nil(t, g.Grant)

		assert.NoError(t, g.Transition(GuestGranted, grant))
		assert.Equal(t, GuestGranted, g.State)
		assert.Equal(t, grant, *g.Grant)
	})

	t.Run("granted to denied clears grant", func(t *testing.T) {
		g := NewGuest("acme-demo", "u1", "Alex", 100)
		assert.NoError(t, g.Transition(GuestGranted, grant))
		assert.NoError(t, g.Transition(GuestDenied, grant))
		assert.Equal(t, GuestDenied, g.State)
		assert.Nil(t, g.Grant)
	})

	t.Run("denied to granted", func(t *testing.T) {
		g := NewGuest("acme-demo", "u1", "Alex", 100)
		assert.NoError(t, g.Transition(GuestDenied, grant))
		assert.NoError(t, g.Transition(GuestGranted, grant))
		assert.Equal(t, grant, *g.Grant)
	})

	t.Run("grant is copied, not shared", func(t *testing.T) {
		g := NewGuest("acme-demo", "u1", "Alex", 100)
		current := grant
		assert.NoError(t, g.Transition(GuestGranted, current))
		current.Text = "changed"
		assert.Equal(t, grant.Text, g.Grant.Text)
	})

	t.Run("pending can not be re-entered", func(t *testing.T) {
		g := NewGuest("acme-demo", "u1", "Alex", 100)
		assert.NoError(t, g.Transition(GuestGranted, grant))
		err := g.Transition(GuestPending, grant)
		assert.True(t, errors.Is(err, ErrInvalidTransition))
		assert.Equal(t, GuestGranted, g.State)
		assert.NotNil(t, g.Grant)
	})

	t.Run("unknown state", func(t *testing.T) {
		g := NewGuest("acme-demo", "u1", "Alex", 100)
		assert.True(t, errors.Is(g.Transition("MAYBE", grant), ErrInvalidTransition))
	})
}

func TestHasUnreadMessages(t *testing.T) {
	assert.False(t, Guest{}.HasUnreadMessages())
	assert.True(t, Guest{MessageSentByUserTime: 10}.HasUnreadMessages())
	assert.True(t, Guest{MessageSentByUserTime: 10, MessageReadByAdminTime: 5}.HasUnreadMessages())
	assert.False(t, Guest{MessageSentByUserTime: 10, MessageReadByAdminTime: 10}.HasUnreadMessages())
	assert.False(t, Guest{MessageSentByUserTime: 10, MessageReadByAdminTime: 20}.HasUnreadMessages())
}

func TestTruncateContent(t *testing.T) {
	assert.Equal(t, "hello", TruncateContent("hello"))
	long := strings.Repeat("ü", MaxMessageContent+20)
	assert.Equal(t, strings.Repeat("ü", MaxMessageContent), TruncateContent(long))
}

func TestLinks(t *testing.T) {
	assert.Equal(t, "https://acme-demo.clearchat.cc/?admin=tok", AdminLink("acme-demo", "clearchat.cc", "tok"))
	assert.Equal(t, "https://acme-demo.clearchat.cc", GuestLink("acme-demo", "clearchat.cc"))
}
