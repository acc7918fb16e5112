package models

// Invite Statuses
const (
	InviteStatusPending  = "pending"
	InviteStatusAccepted = "accepted"
	InviteStatusDeclined = "declined"
)

// Join Request Statuses
const (
	RequestStatusPending  = "pending"
	RequestStatusApproved = "approved"
	RequestStatusRejected = "rejected"
)

// Group limits
const (
	MaxGroupMembers = 50
	MinGroupSize    = 2 // creator plus at least one invitee
)

// InviteTTLDays is how long an invitation stays actionable after creation.
const InviteTTLDays = 7

// Action is a permission-checked operation a user can attempt on a group.
type Action string

const (
	ActionDeleteGroup  Action = "delete_group"
	ActionAddMember    Action = "add_member"
	ActionRemoveMember Action = "remove_member"
	ActionMakeCreator  Action = "make_creator"
	ActionEditGroup    Action = "edit_group"
	ActionMuteMember   Action = "mute_member"
	ActionSendMessage  Action = "send_message"
	ActionViewGroup    Action = "view_group"
)
