package connectiondao

// Connection is the source of truth for a physical websocket connection.
type Connection struct {
	ConnectionID  string `json:"connectionId"  dynamodbav:"connection_id" ddb:"hash"`
	RoomID        string `json:"roomId"        dynamodbav:"room_id"`
	UserID        string `json:"userId"        dynamodbav:"user_id"`
	IsAdmin       bool   `json:"isAdmin"       dynamodbav:"is_admin"`
	Authenticated bool   `json:"authenticated" dynamodbav:"authenticated"`
	CreatedTime   int64  `json:"createdTime"   dynamodbav:"created_time"`
	TTL           int64  `json:"-"             dynamodbav:"ttl,omitempty"`
}

// UserConnection indexes connections by user. RoomConnection is
// "{roomId}::{connectionId}" so a user's connections can be listed per room.
type UserConnection struct {
	UserID         string `dynamodbav:"user_id"         ddb:"hash"`
	RoomConnection string `dynamodbav:"room_connection" ddb:"range"`
	IsAdmin        bool   `dynamodbav:"is_admin"`
	CreatedTime    int64  `dynamodbav:"created_time"`
	TTL            int64  `dynamodbav:"ttl,omitempty"`
}

// AdminConnection indexes the connections of every admin of a room.
type AdminConnection struct {
	RoomID       string `dynamodbav:"room_id"       ddb:"hash"`
	ConnectionID string `dynamodbav:"connection_id" ddb:"range"`
	UserID       string `dynamodbav:"user_id"`
	CreatedTime  int64  `dynamodbav:"created_time"`
	TTL          int64  `dynamodbav:"ttl,omitempty"`
}

const roomConnectionSeparator = "::"

func RoomConnection(roomID, connectionID string) string {
	return roomID + roomConnectionSeparator + connectionID
}
