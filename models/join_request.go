package models

import "time"

// JoinRequest represents a user asking to join a group. The group creator id
// is denormalized onto the record so approval authorization needs no group read.
type JoinRequest struct {
	RequestID       string    `dynamodbav:"requestId" json:"requestId"`             // Partition Key
	GroupID         string    `dynamodbav:"groupId" json:"groupId"`                 // Target group
	GroupName       string    `dynamodbav:"groupName" json:"groupName"`             // Denormalized group name
	RequesterID     string    `dynamodbav:"requesterId" json:"requesterId"`         // User asking to join
	RequesterName   string    `dynamodbav:"requesterName" json:"requesterName"`     // Denormalized requester name
	RequesterAvatar string    `dynamodbav:"requesterAvatar" json:"requesterAvatar"` // Denormalized requester avatar
	CreatorID       string    `dynamodbav:"creatorId" json:"creatorId"`             // Group creator (approver)
	Status          string    `dynamodbav:"status" json:"status"`                   // "pending", "approved", "rejected"
	CreatedAt       time.Time `dynamodbav:"createdAt" json:"createdAt"`
}

// Table name for DynamoDB
const JoinRequestsTable = "GroupJoinRequests"

// GSI Index Names
const (
	RequestGroupIndex     = "groupId-index"     // all requests for a group
	RequestRequesterIndex = "requesterId-index" // a user's outgoing requests
)
