package services

import (
	"context"
	"encoding/json"
	"strings"

	"bloxmate_server/models"

	"github.com/gomodule/redigo/redis"
	"github.com/sirupsen/logrus"
)

// MetaStore is the real-time-store surface the workflow services depend on.
// It owns the per-user GroupMeta projection, the per-group member mirror, the
// message log, and the identity fallback. Nothing behind it is authoritative
// for membership.
type MetaStore interface {
	WriteMeta(ctx context.Context, userID string, meta *models.GroupMeta) error
	GetMeta(ctx context.Context, userID, groupID string) (*models.GroupMeta, error)
	MetaExists(ctx context.Context, userID, groupID string) (bool, error)
	DeleteMeta(ctx context.Context, userID, groupID string) error
	ClearMeta(ctx context.Context, userID, groupID string) error
	MetasForUser(ctx context.Context, userID string) ([]models.GroupMeta, error)

	ListGroupMembers(ctx context.Context, groupID string) ([]string, error)
	DeleteGroupMirror(ctx context.Context, groupID string) error

	AppendMessage(ctx context.Context, msg *models.GroupMessage) error
	Messages(ctx context.Context, groupID string, limit int) ([]models.GroupMessage, error)
	DeleteMessageLog(ctx context.Context, groupID string) error
	FanOutMessage(ctx context.Context, groupID string, memberIDs []string, senderID string, msg *models.GroupMessage) error
	ResetUnread(ctx context.Context, userID, groupID string) error
	SetMuted(ctx context.Context, userID, groupID string, muted bool) error
	UpdateGroupInfo(ctx context.Context, groupID string, memberIDs []string, name, avatar string) error
	UpdateCreator(ctx context.Context, groupID string, memberIDs []string, creatorID string) error

	GetUserProfile(ctx context.Context, userID string) (*models.UserIdentity, error)
}

// Path layout in the real-time store.
func metaPath(userID, groupID string) string { return "groupmeta:" + userID + ":" + groupID }
func mirrorPath(groupID string) string       { return "groupmembers:" + groupID }
func msgLogPath(groupID string) string       { return "groupmsgs:" + groupID }
func profilePath(userID string) string       { return "userprofile:" + userID }

// RedisMetaStore is the production MetaStore on top of RealtimeService.
type RedisMetaStore struct {
	RTS *RealtimeService
	Log *logrus.Logger
}

// WriteMeta writes the projection hash and adds the user to the group mirror
// in one atomic batch.
func (s *RedisMetaStore) WriteMeta(ctx context.Context, userID string, meta *models.GroupMeta) error {
	return s.RTS.BatchUpdate(ctx, []Cmd{
		{Name: "HSET", Args: redis.Args{}.Add(metaPath(userID, meta.GroupID)).AddFlat(meta)},
		{Name: "SADD", Args: redis.Args{}.Add(mirrorPath(meta.GroupID)).Add(userID)},
	})
}

// GetMeta returns the projection, or nil when it is absent or tombstoned.
func (s *RedisMetaStore) GetMeta(ctx context.Context, userID, groupID string) (*models.GroupMeta, error) {
	var meta models.GroupMeta
	found, err := s.RTS.GetHash(ctx, metaPath(userID, groupID), &meta)
	if err != nil {
		return nil, err
	}
	if !found || meta.GroupID == "" {
		return nil, nil
	}
	return &meta, nil
}

func (s *RedisMetaStore) MetaExists(ctx context.Context, userID, groupID string) (bool, error) {
	meta, err := s.GetMeta(ctx, userID, groupID)
	if err != nil {
		return false, err
	}
	return meta != nil, nil
}

// DeleteMeta removes the projection and the mirror entry atomically.
func (s *RedisMetaStore) DeleteMeta(ctx context.Context, userID, groupID string) error {
	return s.RTS.BatchUpdate(ctx, []Cmd{
		{Name: "DEL", Args: redis.Args{}.Add(metaPath(userID, groupID))},
		{Name: "SREM", Args: redis.Args{}.Add(mirrorPath(groupID)).Add(userID)},
	})
}

// ClearMeta is the null-overwrite fallback used when a plain delete did not
// take: the hash is replaced by a tombstone (empty groupId) that every reader
// treats as absent.
func (s *RedisMetaStore) ClearMeta(ctx context.Context, userID, groupID string) error {
	return s.RTS.BatchUpdate(ctx, []Cmd{
		{Name: "DEL", Args: redis.Args{}.Add(metaPath(userID, groupID))},
		{Name: "HSET", Args: redis.Args{}.Add(metaPath(userID, groupID)).Add("groupId").Add("")},
		{Name: "SREM", Args: redis.Args{}.Add(mirrorPath(groupID)).Add(userID)},
	})
}

// MetasForUser lists every live projection for the user.
func (s *RedisMetaStore) MetasForUser(ctx context.Context, userID string) ([]models.GroupMeta, error) {
	paths, err := s.RTS.ScanPaths(ctx, metaPath(userID, "*"))
	if err != nil {
		return nil, err
	}

	metas := make([]models.GroupMeta, 0, len(paths))
	for _, path := range paths {
		var meta models.GroupMeta
		found, err := s.RTS.GetHash(ctx, path, &meta)
		if err != nil {
			if s.Log != nil {
				s.Log.WithError(err).WithField("path", path).Warn("skipping unreadable group meta")
			}
			continue
		}
		if found && meta.GroupID != "" {
			metas = append(metas, meta)
		}
	}
	return metas, nil
}

func (s *RedisMetaStore) ListGroupMembers(ctx context.Context, groupID string) ([]string, error) {
	return s.RTS.SetMembers(ctx, mirrorPath(groupID))
}

func (s *RedisMetaStore) DeleteGroupMirror(ctx context.Context, groupID string) error {
	return s.RTS.DeletePath(ctx, mirrorPath(groupID))
}

func (s *RedisMetaStore) AppendMessage(ctx context.Context, msg *models.GroupMessage) error {
	return s.RTS.PushJSON(ctx, msgLogPath(msg.GroupID), msg)
}

// Messages returns up to limit messages, newest first.
func (s *RedisMetaStore) Messages(ctx context.Context, groupID string, limit int) ([]models.GroupMessage, error) {
	entries, err := s.RTS.RangeJSON(ctx, msgLogPath(groupID), limit)
	if err != nil {
		return nil, err
	}
	messages := make([]models.GroupMessage, 0, len(entries))
	for _, entry := range entries {
		var msg models.GroupMessage
		if err := json.Unmarshal(entry, &msg); err != nil {
			if s.Log != nil {
				s.Log.WithError(err).WithField("groupId", groupID).Warn("skipping undecodable message entry")
			}
			continue
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

func (s *RedisMetaStore) DeleteMessageLog(ctx context.Context, groupID string) error {
	return s.RTS.DeletePath(ctx, msgLogPath(groupID))
}

// FanOutMessage updates every member's last-message preview and bumps unread
// counts for everyone but the sender, in one atomic multi-path batch.
func (s *RedisMetaStore) FanOutMessage(ctx context.Context, groupID string, memberIDs []string, senderID string, msg *models.GroupMessage) error {
	cmds := make([]Cmd, 0, 2*len(memberIDs))
	for _, memberID := range memberIDs {
		path := metaPath(memberID, groupID)
		cmds = append(cmds, Cmd{
			Name: "HSET",
			Args: redis.Args{}.Add(path).
				Add("lastMessage").Add(msg.Text).
				Add("lastMessageTimestamp").Add(msg.CreatedAt),
		})
		if memberID != senderID {
			cmds = append(cmds, Cmd{
				Name: "HINCRBY",
				Args: redis.Args{}.Add(path).Add("unreadCount").Add(1),
			})
		}
	}
	return s.RTS.BatchUpdate(ctx, cmds)
}

func (s *RedisMetaStore) ResetUnread(ctx context.Context, userID, groupID string) error {
	return s.RTS.BatchUpdate(ctx, []Cmd{
		{Name: "HSET", Args: redis.Args{}.Add(metaPath(userID, groupID)).Add("unreadCount").Add(0)},
	})
}

func (s *RedisMetaStore) SetMuted(ctx context.Context, userID, groupID string, muted bool) error {
	return s.RTS.BatchUpdate(ctx, []Cmd{
		{Name: "HSET", Args: redis.Args{}.Add(metaPath(userID, groupID)).Add("muted").Add(muted)},
	})
}

// UpdateGroupInfo propagates a renamed group into every member's projection.
func (s *RedisMetaStore) UpdateGroupInfo(ctx context.Context, groupID string, memberIDs []string, name, avatar string) error {
	cmds := make([]Cmd, 0, len(memberIDs))
	for _, memberID := range memberIDs {
		cmds = append(cmds, Cmd{
			Name: "HSET",
			Args: redis.Args{}.Add(metaPath(memberID, groupID)).
				Add("groupName").Add(name).
				Add("groupAvatar").Add(avatar),
		})
	}
	return s.RTS.BatchUpdate(ctx, cmds)
}

// UpdateCreator propagates a creator transfer into every member's projection.
func (s *RedisMetaStore) UpdateCreator(ctx context.Context, groupID string, memberIDs []string, creatorID string) error {
	cmds := make([]Cmd, 0, len(memberIDs))
	for _, memberID := range memberIDs {
		cmds = append(cmds, Cmd{
			Name: "HSET",
			Args: redis.Args{}.Add(metaPath(memberID, groupID)).Add("createdBy").Add(creatorID),
		})
	}
	return s.RTS.BatchUpdate(ctx, cmds)
}

// GetUserProfile reads the identity fallback used when a caller-supplied
// profile map misses an invitee. Absent profiles are (nil, nil).
func (s *RedisMetaStore) GetUserProfile(ctx context.Context, userID string) (*models.UserIdentity, error) {
	var identity models.UserIdentity
	found, err := s.RTS.GetHash(ctx, profilePath(userID), &identity)
	if err != nil || !found {
		return nil, err
	}
	if strings.TrimSpace(identity.UserID) == "" {
		identity.UserID = userID
	}
	return &identity, nil
}
