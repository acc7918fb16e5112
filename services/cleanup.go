package services

import (
	"context"

	"github.com/sirupsen/logrus"
)

// CleanupState tracks what we know about a user's GroupMeta while tearing it
// down. The ladder only moves forward; a step that errors assumes success
// rather than failing the parent operation, since the caller may lack read
// access to other users' subtrees.
type CleanupState int

const (
	CleanupUnknown CleanupState = iota
	CleanupExists
	CleanupDeleted
	CleanupAssumedDeleted
)

func (s CleanupState) String() string {
	switch s {
	case CleanupExists:
		return "exists"
	case CleanupDeleted:
		return "deleted"
	case CleanupAssumedDeleted:
		return "assumed-deleted"
	default:
		return "unknown"
	}
}

// MetaCleanup removes one user's projection for one group with a
// delete -> verify -> null-overwrite -> reverify ladder. Run never returns an
// error and never panics; every failure is logged and degraded to
// assumed-deleted.
type MetaCleanup struct {
	Meta MetaStore
	Log  *logrus.Logger
}

func (c *MetaCleanup) Run(ctx context.Context, userID, groupID string) CleanupState {
	fields := logrus.Fields{"userId": userID, "groupId": groupID}
	state := CleanupUnknown

	if err := c.Meta.DeleteMeta(ctx, userID, groupID); err != nil {
		c.warn(fields, err, "group meta delete failed, assuming success")
		return CleanupAssumedDeleted
	}
	state = c.verify(ctx, userID, groupID, fields)
	if state != CleanupExists {
		return state
	}

	// Delete did not take; overwrite with a tombstone instead.
	if err := c.Meta.ClearMeta(ctx, userID, groupID); err != nil {
		c.warn(fields, err, "group meta null overwrite failed, assuming success")
		return CleanupAssumedDeleted
	}
	state = c.verify(ctx, userID, groupID, fields)
	if state == CleanupExists {
		c.warn(fields, nil, "group meta survived delete and null overwrite")
		return CleanupAssumedDeleted
	}
	return state
}

func (c *MetaCleanup) verify(ctx context.Context, userID, groupID string, fields logrus.Fields) CleanupState {
	exists, err := c.Meta.MetaExists(ctx, userID, groupID)
	if err != nil {
		c.warn(fields, err, "group meta verify failed, assuming deleted")
		return CleanupAssumedDeleted
	}
	if exists {
		return CleanupExists
	}
	return CleanupDeleted
}

func (c *MetaCleanup) warn(fields logrus.Fields, err error, msg string) {
	if c.Log == nil {
		return
	}
	entry := c.Log.WithFields(fields)
	if err != nil {
		entry = entry.WithError(err)
	}
	entry.Warn(msg)
}
