package domain

// Message is a chat message scoped to exactly one channel or one direct
// conversation.
type Message struct {
	ID          ID     `json:"id,omitempty"`
	SenderID    ID     `json:"sender_id,omitempty"`
	Content     string `json:"content"`
	CreatedAt   *Date  `json:"created_at,omitempty"`
	ChannelID   *ID    `json:"channel_id,omitempty"`
	RecipientID *ID    `json:"recipient_id,omitempty"`
	ClientNonce string `json:"client_nonce,omitempty"`
}

// OnlineUser is a presence entry.
type OnlineUser struct {
	ID        ID     `json:"id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// Channel is a named chat room.
type Channel struct {
	ID          ID     `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	ChannelType string `json:"channel_type,omitempty"`
}

// Conversation is a direct-message peer.
type Conversation struct {
	ID        ID     `json:"id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// Notification is a user notification from the Atlas backend.
type Notification struct {
	ID        ID     `json:"id"`
	Type      string `json:"type"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Link      string `json:"link,omitempty"`
	Read      bool   `json:"read"`
	CreatedAt *Date  `json:"created_at,omitempty"`
	ReadAt    *Date  `json:"read_at,omitempty"`
}
