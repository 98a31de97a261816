package clearchatws

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/SundaeSwap-finance/clearchat/model"
	"github.com/tj/assert"
)

func TestParseRequest(t *testing.T) {
	t.Run("send message", func(t *testing.T) {
		req, err := ParseRequest(`{"request":"SEND_MESSAGE","message":{"userId":"u","content":"hi","direction":"OUT"}}`)
		assert.NoError(t, err)
		assert.Equal(t, SendMessageRequest, req.Request)
		assert.Equal(t, "u", req.Message.UserID)
		assert.Equal(t, model.DirectionOut, req.Message.Direction)
	})

	t.Run("set guest state", func(t *testing.T) {
		req, err := ParseRequest(`{"request":"SET_GUEST_STATE","state":"GRANTED","userId":"u"}`)
		assert.NoError(t, err)
		assert.Equal(t, model.GuestGranted, req.State)
		assert.True(t, req.Request.AdminOnly())
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := ParseRequest(`{"request":"SUBSCRIBE"}`)
		assert.True(t, errors.Is(err, ErrUnknownRequest))
	})

	t.Run("missing fields", func(t *testing.T) {
		for _, body := range []string{
			`{"request":"SEND_MESSAGE"}`,
			`{"request":"SET_ROOM_GRANT"}`,
			`{"request":"SET_GUEST_STATE","state":"DENIED"}`,
			`not json`,
		} {
			_, err := ParseRequest(body)
			assert.Error(t, err, body)
		}
	})
}

func TestAdminOnly(t *testing.T) {
	admin := []RequestType{
		GetRoomDetailsRequest, GetRoomGuestsRequest, GetRoomMessagesRequest, SetRoomGrantRequest,
		DeleteRoomRequest, ResetRoomRequest, SetGuestStateRequest, SetGuestReadRequest,
	}
	for _, r := range admin {
		assert.True(t, r.AdminOnly(), string(r))
	}
	for _, r := range []RequestType{GetMessagesRequest, SendMessageRequest, GetGuestRequest, CreateGuestRequest, HeartbeatRequest} {
		assert.False(t, r.AdminOnly(), string(r))
	}
}

func TestEncode(t *testing.T) {
	testCases := map[string]struct {
		Response Response
		Want     string
	}{
		"heartbeat": {
			Response: Heartbeat("abc"),
			Want:     `{"response":"HEARTBEAT","connectionId":"abc"}`,
		},
		"no guest": {
			Response: GuestDetails(nil),
			Want:     `{"response":"GET_GUEST","guest":null}`,
		},
		"no messages": {
			Response: Messages(nil),
			Want:     `{"response":"GET_MESSAGES","messages":[]}`,
		},
		"no guests": {
			Response: RoomGuests(nil),
			Want:     `{"response":"GET_ROOM_GUESTS","guests":[]}`,
		},
		"error": {
			Response: Error(UserNotAdmin),
			Want:     `{"response":"ERROR","code":"USER_NOT_ADMIN"}`,
		},
		"reload": {
			Response: ReloadPage(),
			Want:     `{"response":"RELOAD_PAGE"}`,
		},
		"authenticated": {
			Response: ConnectionAuthenticated(),
			Want:     `{"response":"CONNECTION_AUTHENTICATED"}`,
		},
	}

	for label, tc := range testCases {
		t.Run(label, func(t *testing.T) {
			b, err := Encode(tc.Response)
			assert.NoError(t, err)
			assert.JSONEq(t, tc.Want, string(b))
		})
	}

	t.Run("guest", func(t *testing.T) {
		grant := model.Grant{Mode: model.GrantModeText, Text: "s3cret"}
		b, err := Encode(GuestDetails(&model.Guest{RoomID: "acme", UserID: "u", State: model.GuestGranted, Grant: &grant}))
		assert.NoError(t, err)

		var got struct {
			Response string
			Guest    map[string]interface{}
		}
		assert.NoError(t, json.Unmarshal(b, &got))
		assert.Equal(t, "GET_GUEST", got.Response)
		assert.Equal(t, "GRANTED", got.Guest["state"])
		assert.Equal(t, "s3cret", got.Guest["grant"].(map[string]interface{})["text"])
	})
}
