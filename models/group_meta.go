package models

// GroupMeta is the per-user, per-group projection kept in Redis for fast
// inbox rendering. It is never authoritative for membership: it is created
// when a user joins and deleted when the user leaves, is removed, or the
// group is deleted. Stored as a hash at groupmeta:{userId}:{groupId}.
type GroupMeta struct {
	GroupID              string `redis:"groupId" json:"groupId"`
	GroupName            string `redis:"groupName" json:"groupName"`
	GroupAvatar          string `redis:"groupAvatar" json:"groupAvatar"`
	LastMessage          string `redis:"lastMessage" json:"lastMessage"`
	LastMessageTimestamp int64  `redis:"lastMessageTimestamp" json:"lastMessageTimestamp"` // unix millis
	UnreadCount          int    `redis:"unreadCount" json:"unreadCount"`
	Muted                bool   `redis:"muted" json:"muted"` // user muted their own notifications
	JoinedAt             int64  `redis:"joinedAt" json:"joinedAt"`
	CreatedBy            string `redis:"createdBy" json:"createdBy"`
}
