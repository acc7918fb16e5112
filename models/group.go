package models

import "time"

// Group is the authoritative membership record in DynamoDB.
// MemberIDs and Members mirror each other; MemberCount always equals both.
type Group struct {
	GroupID     string                 `dynamodbav:"groupId" json:"groupId"`         // Partition Key
	Name        string                 `dynamodbav:"name" json:"name"`               // Display name
	Description string                 `dynamodbav:"description" json:"description"` // Display description
	Avatar      string                 `dynamodbav:"avatar" json:"avatar"`           // Group avatar URL
	CreatedBy   string                 `dynamodbav:"createdBy" json:"createdBy"`     // Sole privileged member
	MemberIDs   []string               `dynamodbav:"memberIds" json:"memberIds"`     // Membership set
	Members     map[string]GroupMember `dynamodbav:"members" json:"members"`         // userId -> member details
	MutedIDs    []string               `dynamodbav:"mutedIds" json:"mutedIds"`       // Members muted by the creator
	MemberCount int                    `dynamodbav:"memberCount" json:"memberCount"` // == len(MemberIDs)
	MaxMembers  int                    `dynamodbav:"maxMembers" json:"maxMembers"`   // Fixed at creation
	IsActive    bool                   `dynamodbav:"isActive" json:"isActive"`       // Discovery flag
	CreatedAt   time.Time              `dynamodbav:"createdAt" json:"createdAt"`
	Version     int64                  `dynamodbav:"version" json:"-"` // Optimistic lock counter
}

// GroupMember holds the denormalized display data for one member.
type GroupMember struct {
	DisplayName string    `dynamodbav:"displayName" json:"displayName"`
	Avatar      string    `dynamodbav:"avatar" json:"avatar"`
	JoinedAt    time.Time `dynamodbav:"joinedAt" json:"joinedAt"`
}

// UserIdentity is the opaque identity tuple callers pass through.
type UserIdentity struct {
	UserID      string `json:"userId" redis:"userId"`
	DisplayName string `json:"displayName" redis:"displayName"`
	Avatar      string `json:"avatar" redis:"avatar"`
}

// Table name for DynamoDB
const GroupsTable = "Groups"

// GSI for the one-active-group-per-creator check
const GroupCreatorIndex = "createdBy-index"

// HasMember reports whether userID is in the membership set.
func (g *Group) HasMember(userID string) bool {
	for _, id := range g.MemberIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// IsMutedMember reports whether the creator has muted userID.
func (g *Group) IsMutedMember(userID string) bool {
	for _, id := range g.MutedIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// IsFull reports whether the group has reached its member cap.
func (g *Group) IsFull() bool {
	return len(g.MemberIDs) >= g.MaxMembers
}
