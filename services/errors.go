package services

import "errors"

// Validation and workflow errors returned across the service boundary.
// Controllers map these onto HTTP statuses and the {success, error} envelope;
// anything not in this list is treated as a store failure.
var (
	ErrMissingParameters = errors.New("missing required parameters")

	ErrGroupNotFound   = errors.New("group not found")
	ErrInviteNotFound  = errors.New("invitation not found")
	ErrRequestNotFound = errors.New("join request not found")

	ErrUnauthorized = errors.New("not authorized for this action")

	ErrAlreadyMember     = errors.New("user is already a member of this group")
	ErrAlreadyProcessed  = errors.New("already processed")
	ErrDuplicateInvite   = errors.New("a pending invitation already exists for this user")
	ErrDuplicateRequest  = errors.New("a pending join request already exists for this user")
	ErrActiveGroupExists = errors.New("creator already has an active group")

	ErrGroupFull     = errors.New("group is full")
	ErrInviteExpired = errors.New("invitation has expired")
	ErrNotYourInvite = errors.New("invitation belongs to another user")
	ErrNotAMember    = errors.New("user is not a member of this group")

	// ErrTxConflict is returned when an optimistic update loses the write
	// race on every attempt.
	ErrTxConflict = errors.New("too much contention, please retry")
)
