package model

type Direction string

const (
	// DirectionIn is guest to admin.
	DirectionIn Direction = "IN"
	// DirectionOut is admin to guest.
	DirectionOut Direction = "OUT"
)

func (d Direction) Valid() bool {
	return d == DirectionIn || d == DirectionOut
}

// MaxMessageContent is the longest message, in characters, that is stored.
const MaxMessageContent = 280

// Message is immutable once stored. UserID is always the guest the
// conversation belongs to, whichever way the message travelled.
type Message struct {
	MessageID   string    `json:"messageId"   dynamodbav:"message_id"   ddb:"hash"`
	RoomID      string    `json:"roomId"      dynamodbav:"room_id"      ddb:"gsi_hash:RoomUserIndex"`
	UserID      string    `json:"userId"      dynamodbav:"user_id"      ddb:"gsi_range:RoomUserIndex"`
	Content     string    `json:"content"     dynamodbav:"content"`
	Direction   Direction `json:"direction"   dynamodbav:"direction"`
	CreatedTime int64     `json:"createdTime" dynamodbav:"created_time"`
}

// TruncateContent cuts s to MaxMessageContent characters.
func TruncateContent(s string) string {
	runes := []rune(s)
	if len(runes) <= MaxMessageContent {
		return s
	}
	return string(runes[:MaxMessageContent])
}
