// Package model holds the rooms, guests and messages exchanged between the
// websocket handler, the REST API and the DynamoDB tables, together with the
// validation rules that apply to them.
package model

import (
	"errors"
	"fmt"
	"regexp"
	"time"
	"unicode/utf8"
)

var (
	ErrRoomIDInvalid  = errors.New("room id invalid")
	ErrRoomIDReserved = errors.New("room id reserved")
	ErrGrantInvalid   = errors.New("grant invalid")
)

// MaxGrantText is the longest grant text a room may hold.
const MaxGrantText = 10000

type GrantMode string

const (
	GrantModeLink GrantMode = "LINK"
	GrantModeText GrantMode = "TEXT"
)

type AdminMode string

const (
	AdminModeLink  AdminMode = "LINK"
	AdminModeEmail AdminMode = "EMAIL"
)

// Grant is what an admin hands to approved guests: a link or a text secret.
type Grant struct {
	Mode GrantMode `json:"mode" dynamodbav:"mode"`
	Text string    `json:"text" dynamodbav:"text"`
}

func (g Grant) Validate() error {
	if g.Mode != GrantModeLink && g.Mode != GrantModeText {
		return fmt.Errorf("%w: unknown mode %q", ErrGrantInvalid, g.Mode)
	}
	if n := utf8.RuneCountInString(g.Text); n > MaxGrantText {
		return fmt.Errorf("%w: text is %d characters, max %d", ErrGrantInvalid, n, MaxGrantText)
	}
	return nil
}

// Room is keyed by its slug. AdminToken is generated once at claim time and
// is the only admin credential for the room.
type Room struct {
	RoomID       string `json:"roomId"          dynamodbav:"room_id"           ddb:"hash"`
	Creator      string `json:"creator"         dynamodbav:"creator"`
	CreatedTime  int64  `json:"createdTime"     dynamodbav:"created_time"`
	AccessedTime int64  `json:"accessedTime"    dynamodbav:"accessed_time"`
	Email        string `json:"email,omitempty" dynamodbav:"email,omitempty"`
	Grant        Grant  `json:"grant"           dynamodbav:"grant"`
	AdminToken   string `json:"adminToken"      dynamodbav:"admin_token"`
}

var roomIDPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// reserved room ids are subdomains of the zone used by the service itself or
// likely to be confused with it.
var reserved = map[string]struct{}{
	"admin": {}, "api": {}, "app": {}, "beta": {}, "blog": {}, "dev": {},
	"events": {}, "forum": {}, "forums": {}, "ftp": {}, "go": {}, "help": {},
	"http": {}, "imap": {}, "info": {}, "int": {}, "kb": {}, "lineup-ninja": {},
	"lineup": {}, "lineupninja": {}, "live": {}, "m": {}, "mail": {}, "media": {},
	"mobile": {}, "news": {}, "ninja": {}, "ns1": {}, "ns2": {}, "ns3": {},
	"poo": {}, "prod": {}, "smtp": {}, "static": {}, "support": {}, "test": {},
	"vpn": {}, "webmail": {}, "wiki": {}, "ws": {}, "www": {},
}

func IsReserved(roomID string) bool {
	_, ok := reserved[roomID]
	return ok
}

// ValidateRoomID checks the slug shape and the reserved word list.
func ValidateRoomID(roomID string) error {
	if !roomIDPattern.MatchString(roomID) {
		return fmt.Errorf("%w: %q", ErrRoomIDInvalid, roomID)
	}
	if IsReserved(roomID) {
		return fmt.Errorf("%w: %q", ErrRoomIDReserved, roomID)
	}
	return nil
}

// AdminLink is the url an admin uses to manage the room.
func AdminLink(roomID, zone, adminToken string) string {
	return fmt.Sprintf("https://%v.%v/?admin=%v", roomID, zone, adminToken)
}

// GuestLink is the url handed out to guests.
func GuestLink(roomID, zone string) string {
	return fmt.Sprintf("https://%v.%v", roomID, zone)
}

// Millis returns t as milliseconds since the unix epoch, the resolution used
// for every timestamp on the wire and in the tables.
func Millis(t time.Time) int64 {
	return t.UnixMilli()
}
