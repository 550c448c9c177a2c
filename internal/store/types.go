package store

// Message type values.
const (
	TypeText  = "text"
	TypeImage = "image"
	TypeFile  = "file"
)

// Conversation represents a direct chat with a peer or a group chat.
type Conversation struct {
	ID            string
	Name          string
	IsGroup       bool
	UnreadCount   int
	LastMessage   string
	LastMessageAt int64
}

// Message represents one entry in a conversation's message log.
// Attachment fields are zero for plain text messages.
type Message struct {
	ID               int64
	ConversationID   string
	MsgID            string
	SenderID         string
	SenderName       string
	Body             string
	MessageType      string
	Outgoing         bool
	IsGroup          bool
	Filename         string
	FileSize         int64
	FileType         string
	ShareCode        string
	DownloadID       string
	DownloadProgress int
	IsDownloading    bool
	Timestamp        int64
}

// SearchResult holds a message with a search snippet.
type SearchResult struct {
	Message Message
	Snippet string
}
