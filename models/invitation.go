package models

import "time"

// Invitation represents a pending group invite in DynamoDB.
// Inviter and invitee display data is denormalized at creation so inbox
// rendering needs no extra reads.
type Invitation struct {
	InviteID      string    `dynamodbav:"inviteId" json:"inviteId"`           // Partition Key
	GroupID       string    `dynamodbav:"groupId" json:"groupId"`             // Target group
	GroupName     string    `dynamodbav:"groupName" json:"groupName"`         // Denormalized group name
	GroupAvatar   string    `dynamodbav:"groupAvatar" json:"groupAvatar"`     // Denormalized group avatar
	InvitedBy     string    `dynamodbav:"invitedBy" json:"invitedBy"`         // Inviter user id
	InviterName   string    `dynamodbav:"inviterName" json:"inviterName"`     // Denormalized inviter name
	InvitedUserID string    `dynamodbav:"invitedUserId" json:"invitedUserId"` // Invitee user id
	InviteeName   string    `dynamodbav:"inviteeName" json:"inviteeName"`     // Denormalized invitee name
	InviteeAvatar string    `dynamodbav:"inviteeAvatar" json:"inviteeAvatar"` // Denormalized invitee avatar
	Status        string    `dynamodbav:"status" json:"status"`               // "pending", "accepted", "declined"
	CreatedAt     time.Time `dynamodbav:"createdAt" json:"createdAt"`
	ExpiresAt     time.Time `dynamodbav:"expiresAt" json:"expiresAt"` // CreatedAt + 7 days
}

// IsExpired reports whether the invite is past its expiry at the given time.
// Expired invites are ignored at read time, never swept.
func (i *Invitation) IsExpired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

// Table name for DynamoDB
const InvitesTable = "GroupInvites"

// GSI Index Names
const (
	InviteGroupIndex   = "groupId-index"       // all invites for a group
	InviteInviteeIndex = "invitedUserId-index" // a user's incoming invites
)
