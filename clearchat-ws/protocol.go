package clearchatws

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/SundaeSwap-finance/clearchat/chat"
	"github.com/SundaeSwap-finance/clearchat/model"
)

var ErrUnknownRequest = errors.New("unknown request")

// RequestType tags a client request on the application channel.
type RequestType string

const (
	GetMessagesRequest     RequestType = "GET_MESSAGES"
	SendMessageRequest     RequestType = "SEND_MESSAGE"
	GetRoomMessagesRequest RequestType = "GET_ROOM_MESSAGES"
	GetGuestRequest        RequestType = "GET_GUEST"
	GetRoomDetailsRequest  RequestType = "GET_ROOM_DETAILS"
	GetRoomGuestsRequest   RequestType = "GET_ROOM_GUESTS"
	SetRoomGrantRequest    RequestType = "SET_ROOM_GRANT"
	CreateGuestRequest     RequestType = "CREATE_GUEST"
	SetGuestStateRequest   RequestType = "SET_GUEST_STATE"
	SetGuestReadRequest    RequestType = "SET_GUEST_READ"
	DeleteRoomRequest      RequestType = "DELETE_ROOM"
	ResetRoomRequest       RequestType = "RESET_ROOM"
	HeartbeatRequest       RequestType = "HEARTBEAT"
)

var requestTypes = map[RequestType]bool{
	GetMessagesRequest:     false,
	SendMessageRequest:     false,
	GetRoomMessagesRequest: true,
	GetGuestRequest:        false,
	GetRoomDetailsRequest:  true,
	GetRoomGuestsRequest:   true,
	SetRoomGrantRequest:    true,
	CreateGuestRequest:     false,
	SetGuestStateRequest:   true,
	SetGuestReadRequest:    true,
	DeleteRoomRequest:      true,
	ResetRoomRequest:       true,
	HeartbeatRequest:       false,
}

// AdminOnly reports whether only room admins may issue the request.
func (r RequestType) AdminOnly() bool {
	return requestTypes[r]
}

// Request is any client request. Only the fields of the tagged type are set.
type Request struct {
	Request RequestType         `json:"request"`
	Message *chat.MessageToSend `json:"message,omitempty"`
	Grant   *model.Grant        `json:"grant,omitempty"`
	Name    string              `json:"name,omitempty"`
	State   model.GuestState    `json:"state,omitempty"`
	UserID  string              `json:"userId,omitempty"`
}

// ParseRequest decodes a request body and rejects unknown request types.
func ParseRequest(body string) (*Request, error) {
	var req Request
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	if _, ok := requestTypes[req.Request]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRequest, req.Request)
	}
	switch req.Request {
	case SendMessageRequest:
		if req.Message == nil {
			return nil, fmt.Errorf("invalid request: %v requires a message", req.Request)
		}
	case SetRoomGrantRequest:
		if req.Grant == nil {
			return nil, fmt.Errorf("invalid request: %v requires a grant", req.Request)
		}
	case SetGuestStateRequest, SetGuestReadRequest:
		if req.UserID == "" {
			return nil, fmt.Errorf("invalid request: %v requires a userId", req.Request)
		}
	}
	return &req, nil
}

type ResponseType string

const (
	GetMessagesResponseType             ResponseType = "GET_MESSAGES"
	GetGuestResponseType                ResponseType = "GET_GUEST"
	GetRoomDetailsResponseType          ResponseType = "GET_ROOM_DETAILS"
	GetRoomGuestsResponseType           ResponseType = "GET_ROOM_GUESTS"
	HeartbeatResponseType               ResponseType = "HEARTBEAT"
	ConnectionAuthenticatedResponseType ResponseType = "CONNECTION_AUTHENTICATED"
	ReloadPageResponseType              ResponseType = "RELOAD_PAGE"
	RedirectToBrochureResponseType      ResponseType = "REDIRECT_TO_BROCHURE"
	ErrorResponseType                   ResponseType = "ERROR"
)

type ErrorCode string

const (
	UserNotAdmin ErrorCode = "USER_NOT_ADMIN"
	RoomNotFound ErrorCode = "ROOM_NOT_FOUND"
)

// Response is the closed set of payloads the server pushes to connections.
// Values are built with the constructors below.
type Response interface {
	Type() ResponseType
	response()
}

type tag struct {
	Response ResponseType `json:"response"`
}

func (t tag) Type() ResponseType { return t.Response }
func (tag) response()            {}

type MessagesResponse struct {
	tag
	Messages []model.Message `json:"messages"`
}

type GuestResponse struct {
	tag
	Guest *model.Guest `json:"guest"`
}

type RoomDetailsResponse struct {
	tag
	Room model.Room `json:"room"`
}

type RoomGuestsResponse struct {
	tag
	Guests []model.Guest `json:"guests"`
}

type HeartbeatResponse struct {
	tag
	ConnectionID string `json:"connectionId"`
}

type NoticeResponse struct {
	tag
}

type ErrorResponse struct {
	tag
	Code ErrorCode `json:"code"`
}

func Messages(messages []model.Message) Response {
	if messages == nil {
		messages = []model.Message{}
	}
	return MessagesResponse{tag: tag{GetMessagesResponseType}, Messages: messages}
}

// GuestDetails wraps a guest; nil encodes as "guest": null.
func GuestDetails(guest *model.Guest) Response {
	return GuestResponse{tag: tag{GetGuestResponseType}, Guest: guest}
}

func RoomDetails(room model.Room) Response {
	return RoomDetailsResponse{tag: tag{GetRoomDetailsResponseType}, Room: room}
}

func RoomGuests(guests []model.Guest) Response {
	if guests == nil {
		guests = []model.Guest{}
	}
	return RoomGuestsResponse{tag: tag{GetRoomGuestsResponseType}, Guests: guests}
}

func Heartbeat(connectionID string) Response {
	return HeartbeatResponse{tag: tag{HeartbeatResponseType}, ConnectionID: connectionID}
}

func ConnectionAuthenticated() Response {
	return NoticeResponse{tag{ConnectionAuthenticatedResponseType}}
}

func ReloadPage() Response {
	return NoticeResponse{tag{ReloadPageResponseType}}
}

func RedirectToBrochure() Response {
	return NoticeResponse{tag{RedirectToBrochureResponseType}}
}

func Error(code ErrorCode) Response {
	return ErrorResponse{tag: tag{ErrorResponseType}, Code: code}
}

// Encode marshals a response to its wire form.
func Encode(resp Response) ([]byte, error) {
	b, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("marshalling %v response: %w", resp.Type(), err)
	}
	return b, nil
}
