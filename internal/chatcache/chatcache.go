// Package chatcache mirrors each room's recent chat window in a Redis list.
package chatcache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/drakeRAGE/Real-Time-Collaborative-Whiteboard/internal/model"
)

const keyTTL = 24 * time.Hour

// Cache keeps at most limit messages per room, oldest first.
type Cache struct {
	client *redis.Client
	limit  int64
}

// Connect dials Redis and verifies the connection.
func Connect(addr, password string, db, limit int) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}

	log.Info().Str("module", "chatcache").Str("addr", addr).Msg("connected to redis")
	return New(client, limit), nil
}

func New(client *redis.Client, limit int) *Cache {
	return &Cache{client: client, limit: int64(limit)}
}

func key(roomID string) string {
	return "room:" + roomID + ":chat"
}

// Recent returns the cached window. ok is false on a cache miss.
func (c *Cache) Recent(ctx context.Context, roomID string) ([]model.ChatMessage, bool, error) {
	raw, err := c.client.LRange(ctx, key(roomID), 0, -1).Result()
	if err != nil {
		return nil, false, err
	}
	if len(raw) == 0 {
		return nil, false, nil
	}

	msgs := make([]model.ChatMessage, 0, len(raw))
	for _, item := range raw {
		var m model.ChatMessage
		if err := json.Unmarshal([]byte(item), &m); err != nil {
			return nil, false, fmt.Errorf("decode cached chat for %s: %w", roomID, err)
		}
		msgs = append(msgs, m)
	}
	return msgs, true, nil
}

// Fill replaces the room's window with msgs.
func (c *Cache) Fill(ctx context.Context, roomID string, msgs []model.ChatMessage) error {
	k := key(roomID)
	values := make([]interface{}, 0, len(msgs))
	for _, m := range msgs {
		data, err := json.Marshal(m)
		if err != nil {
			return err
		}
		values = append(values, data)
	}

	pipe := c.client.TxPipeline()
	pipe.Del(ctx, k)
	if len(values) > 0 {
		pipe.RPush(ctx, k, values...)
		pipe.LTrim(ctx, k, -c.limit, -1)
		pipe.Expire(ctx, k, keyTTL)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Append adds msg to a window that is already cached. A room with no cached
// window is left alone so the next read falls through to the store.
func (c *Cache) Append(ctx context.Context, msg model.ChatMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	k := key(msg.RoomID)
	pipe := c.client.TxPipeline()
	pipe.RPushX(ctx, k, data)
	pipe.LTrim(ctx, k, -c.limit, -1)
	pipe.Expire(ctx, k, keyTTL)
	_, err = pipe.Exec(ctx)
	return err
}

// Invalidate drops the cached window for roomID.
func (c *Cache) Invalidate(ctx context.Context, roomID string) error {
	return c.client.Del(ctx, key(roomID)).Err()
}

func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *Cache) Close() error {
	return c.client.Close()
}
