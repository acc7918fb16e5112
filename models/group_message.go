package models

// GroupMessage is one entry in a group's Redis message log
// (groupmsgs:{groupId}, newest first).
type GroupMessage struct {
	MessageID  string `json:"messageId"`
	GroupID    string `json:"groupId"`
	SenderID   string `json:"senderId"`
	SenderName string `json:"senderName"`
	Text       string `json:"text"`
	CreatedAt  int64  `json:"createdAt"` // unix millis
}
