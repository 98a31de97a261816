package clearchatrest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/SundaeSwap-finance/clearchat/chat"
	"github.com/SundaeSwap-finance/clearchat/mailer"
	"github.com/rs/zerolog"
	"github.com/tj/assert"
)

type failingRooms struct{}

func (failingRooms) CheckRoomAvailability(context.Context, string) (bool, error) {
	return false, errors.New("boom")
}

func (failingRooms) ClaimRoom(context.Context, chat.ClaimRequest, string) (chat.ClaimResult, error) {
	return chat.ClaimResult{}, errors.New("boom")
}

func post(t *testing.T, server *httptest.Server, path, body string, v interface{}) int {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, server.URL+path, strings.NewReader(body))
	assert.Nil(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", "203.0.113.7")

	resp, err := http.DefaultClient.Do(req)
	assert.Nil(t, err)
	defer resp.Body.Close()

	if v != nil && resp.StatusCode == http.StatusOK {
		data, err := io.ReadAll(resp.Body)
		assert.Nil(t, err)
		assert.Nil(t, json.Unmarshal(data, v))
	}
	return resp.StatusCode
}

func TestAPI(t *testing.T) {
	var (
		logger  = zerolog.Nop()
		store   = chat.NewMemoryStore()
		service = chat.New(store, mailer.Log{Logger: logger, Zone: "clearchat.cc"}, chat.Config{
			Zone:     "clearchat.cc",
			NewToken: func() string { return "token-1" },
		})
		api    = &API{Rooms: service}
		server = httptest.NewServer(api.Routes(logger))
	)
	defer server.Close()

	var available AvailabilityResponse
	assert.Equal(t, http.StatusOK, post(t, server, "/availability", `{"roomId":"acme"}`, &available))
	assert.True(t, available.Available)

	assert.Equal(t, http.StatusOK, post(t, server, "/availability", `{"roomId":"www"}`, &available))
	assert.False(t, available.Available)

	var result chat.ClaimResult
	code := post(t, server, "/claim", `{"roomId":"acme","grant":{"mode":"LINK","text":"https://video.example/acme"},"admin":{"mode":"LINK"}}`, &result)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, result.Success)
	assert.Equal(t, "https://acme.clearchat.cc/?admin=token-1", result.AdminLink)
	assert.Equal(t, "https://acme.clearchat.cc", result.GuestLink)

	room, err := store.GetRoom(context.Background(), "acme")
	assert.Nil(t, err)
	assert.Equal(t, "203.0.113.7", room.Creator)

	assert.Equal(t, http.StatusOK, post(t, server, "/availability", `{"roomId":"acme"}`, &available))
	assert.False(t, available.Available)

	result = chat.ClaimResult{}
	code = post(t, server, "/claim", `{"roomId":"acme","grant":{"mode":"LINK","text":"https://video.example/acme"},"admin":{"mode":"LINK"}}`, &result)
	assert.Equal(t, http.StatusOK, code)
	assert.False(t, result.Success)
	assert.Equal(t, chat.RoomNotAvailable, result.Reason)

	assert.Equal(t, http.StatusBadRequest, post(t, server, "/claim", `{`, nil))
	assert.Equal(t, http.StatusBadRequest, post(t, server, "/availability", `nope`, nil))
}

func TestAPIFailures(t *testing.T) {
	server := httptest.NewServer((&API{Rooms: failingRooms{}}).Routes(zerolog.Nop()))
	defer server.Close()

	assert.Equal(t, http.StatusInternalServerError, post(t, server, "/availability", `{"roomId":"acme"}`, nil))
	assert.Equal(t, http.StatusInternalServerError, post(t, server, "/claim", `{"roomId":"acme"}`, nil))
}

func TestCORS(t *testing.T) {
	server := httptest.NewServer((&API{Rooms: failingRooms{}}).Routes(zerolog.Nop()))
	defer server.Close()

	req, err := http.NewRequest(http.MethodOptions, server.URL+"/claim", nil)
	assert.Nil(t, err)
	req.Header.Set("Origin", "https://clearchat.cc")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	resp, err := http.DefaultClient.Do(req)
	assert.Nil(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
