package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gomodule/redigo/redis"
	"github.com/sirupsen/logrus"
)

// RealtimeService wraps the Redis pool with the tree-keyed operations the
// projection store is built on. Paths are plain Redis keys; batched updates
// go through MULTI/EXEC so a multi-path write lands atomically.
type RealtimeService struct {
	Pool *redis.Pool
	Log  *logrus.Logger
}

// Cmd is a single command inside a batched update.
type Cmd struct {
	Name string
	Args []interface{}
}

// InitializeRedisPool initializes the Redis connection pool.
func InitializeRedisPool(addr string) *redis.Pool {
	return &redis.Pool{
		MaxIdle:     10,
		MaxActive:   50,
		IdleTimeout: 240 * time.Second,
		Dial: func() (redis.Conn, error) {
			return redis.Dial("tcp", addr)
		},
		TestOnBorrow: func(c redis.Conn, t time.Time) error {
			if time.Since(t) < time.Minute {
				return nil
			}
			_, err := c.Do("PING")
			return err
		},
	}
}

func (r *RealtimeService) conn(ctx context.Context) (redis.Conn, error) {
	return r.Pool.GetContext(ctx)
}

// GetHash reads the hash at path into dest via struct tags. Returns false
// when the path does not exist.
func (r *RealtimeService) GetHash(ctx context.Context, path string, dest interface{}) (bool, error) {
	conn, err := r.conn(ctx)
	if err != nil {
		return false, fmt.Errorf("realtime store unavailable: %w", err)
	}
	defer conn.Close()

	values, err := redis.Values(conn.Do("HGETALL", path))
	if err != nil {
		return false, fmt.Errorf("failed to read path '%s': %w", path, err)
	}
	if len(values) == 0 {
		return false, nil
	}
	if err := redis.ScanStruct(values, dest); err != nil {
		return false, fmt.Errorf("failed to scan path '%s': %w", path, err)
	}
	return true, nil
}

// SetHash writes v as the hash at path.
func (r *RealtimeService) SetHash(ctx context.Context, path string, v interface{}) error {
	conn, err := r.conn(ctx)
	if err != nil {
		return fmt.Errorf("realtime store unavailable: %w", err)
	}
	defer conn.Close()

	if _, err := conn.Do("HSET", redis.Args{}.Add(path).AddFlat(v)...); err != nil {
		return fmt.Errorf("failed to write path '%s': %w", path, err)
	}
	return nil
}

// DeletePath removes the value at path.
func (r *RealtimeService) DeletePath(ctx context.Context, path string) error {
	conn, err := r.conn(ctx)
	if err != nil {
		return fmt.Errorf("realtime store unavailable: %w", err)
	}
	defer conn.Close()

	if _, err := conn.Do("DEL", path); err != nil {
		return fmt.Errorf("failed to delete path '%s': %w", path, err)
	}
	return nil
}

// PathExists reports whether anything is stored at path.
func (r *RealtimeService) PathExists(ctx context.Context, path string) (bool, error) {
	conn, err := r.conn(ctx)
	if err != nil {
		return false, fmt.Errorf("realtime store unavailable: %w", err)
	}
	defer conn.Close()

	n, err := redis.Int(conn.Do("EXISTS", path))
	if err != nil {
		return false, fmt.Errorf("failed to check path '%s': %w", path, err)
	}
	return n > 0, nil
}

// BatchUpdate applies all commands atomically via MULTI/EXEC.
func (r *RealtimeService) BatchUpdate(ctx context.Context, cmds []Cmd) error {
	if len(cmds) == 0 {
		return nil
	}
	conn, err := r.conn(ctx)
	if err != nil {
		return fmt.Errorf("realtime store unavailable: %w", err)
	}
	defer conn.Close()

	if err := conn.Send("MULTI"); err != nil {
		return fmt.Errorf("failed to start batch: %w", err)
	}
	for _, cmd := range cmds {
		if err := conn.Send(cmd.Name, cmd.Args...); err != nil {
			return fmt.Errorf("failed to queue %s: %w", cmd.Name, err)
		}
	}
	if _, err := conn.Do("EXEC"); err != nil {
		return fmt.Errorf("batch update failed: %w", err)
	}
	return nil
}

// SetMembers returns the members of the set at path.
func (r *RealtimeService) SetMembers(ctx context.Context, path string) ([]string, error) {
	conn, err := r.conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("realtime store unavailable: %w", err)
	}
	defer conn.Close()

	members, err := redis.Strings(conn.Do("SMEMBERS", path))
	if err != nil {
		return nil, fmt.Errorf("failed to list set '%s': %w", path, err)
	}
	return members, nil
}

// PushJSON prepends a JSON-encoded value to the list at path.
func (r *RealtimeService) PushJSON(ctx context.Context, path string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode value for '%s': %w", path, err)
	}
	conn, err := r.conn(ctx)
	if err != nil {
		return fmt.Errorf("realtime store unavailable: %w", err)
	}
	defer conn.Close()

	if _, err := conn.Do("LPUSH", path, data); err != nil {
		return fmt.Errorf("failed to push to '%s': %w", path, err)
	}
	return nil
}

// RangeJSON reads up to limit entries from the head of the list at path.
func (r *RealtimeService) RangeJSON(ctx context.Context, path string, limit int) ([][]byte, error) {
	conn, err := r.conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("realtime store unavailable: %w", err)
	}
	defer conn.Close()

	entries, err := redis.ByteSlices(conn.Do("LRANGE", path, 0, limit-1))
	if err != nil {
		return nil, fmt.Errorf("failed to read list '%s': %w", path, err)
	}
	return entries, nil
}

// ScanPaths returns every key matching pattern. Used only by fallback
// discovery paths, never on a hot path.
func (r *RealtimeService) ScanPaths(ctx context.Context, pattern string) ([]string, error) {
	conn, err := r.conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("realtime store unavailable: %w", err)
	}
	defer conn.Close()

	var paths []string
	cursor := int64(0)
	for {
		reply, err := redis.Values(conn.Do("SCAN", cursor, "MATCH", pattern, "COUNT", 100))
		if err != nil {
			return nil, fmt.Errorf("failed to scan pattern '%s': %w", pattern, err)
		}
		cursor, _ = redis.Int64(reply[0], nil)
		keys, _ := redis.Strings(reply[1], nil)
		paths = append(paths, keys...)
		if cursor == 0 {
			return paths, nil
		}
	}
}
