package clearchatrest

import (
	"context"
	"encoding/json"
	"net"
	"net/http"

	"github.com/SundaeSwap-finance/clearchat/chat"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// RoomService is the part of chat.Service the endpoints use.
type RoomService interface {
	CheckRoomAvailability(ctx context.Context, roomID string) (bool, error)
	ClaimRoom(ctx context.Context, req chat.ClaimRequest, creator string) (chat.ClaimResult, error)
}

type AvailabilityRequest struct {
	RoomID string `json:"roomId"`
}

type AvailabilityResponse struct {
	Available bool `json:"available"`
}

type API struct {
	Rooms RoomService
}

func (a *API) Routes(logger zerolog.Logger) chi.Router {
	router := Middlewares(logger, chi.NewRouter())
	router.Post("/availability", a.availability)
	router.Post("/claim", a.claim)
	return router
}

func (a *API) availability(w http.ResponseWriter, req *http.Request) {
	var body AvailabilityRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		zerolog.Ctx(req.Context()).Warn().Err(err).Msg("bad availability request")
		http.Error(w, "Request not valid", http.StatusBadRequest)
		return
	}

	available, err := a.Rooms.CheckRoomAvailability(req.Context(), body.RoomID)
	if err != nil {
		zerolog.Ctx(req.Context()).Error().Err(err).Str("room_id", body.RoomID).Msg("availability check failed")
		http.Error(w, "Failed to check availability", http.StatusInternalServerError)
		return
	}
	writeJSON(req.Context(), w, AvailabilityResponse{Available: available})
}

func (a *API) claim(w http.ResponseWriter, req *http.Request) {
	var body chat.ClaimRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		zerolog.Ctx(req.Context()).Warn().Err(err).Msg("bad claim request")
		http.Error(w, "Request not valid", http.StatusBadRequest)
		return
	}

	result, err := a.Rooms.ClaimRoom(req.Context(), body, sourceIP(req))
	if err != nil {
		zerolog.Ctx(req.Context()).Error().Err(err).Str("room_id", body.RoomID).Msg("claim failed")
		http.Error(w, "Failed to claim room", http.StatusInternalServerError)
		return
	}
	writeJSON(req.Context(), w, result)
}

func sourceIP(req *http.Request) string {
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return req.RemoteAddr
	}
	return host
}

func writeJSON(ctx context.Context, w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to write response")
	}
}
