// Package users resolves authenticated identities to stored user records.
package users

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/drakeRAGE/Real-Time-Collaborative-Whiteboard/internal/apperr"
	"github.com/drakeRAGE/Real-Time-Collaborative-Whiteboard/internal/model"
)

// upsertTimeout bounds the shared store call. It runs detached from the
// caller that started it since other callers may be waiting on it.
const upsertTimeout = 10 * time.Second

// Store is the user persistence the directory needs.
type Store interface {
	UpsertUser(ctx context.Context, u model.User) (*model.User, error)
}

// Directory ensures every connecting identity has exactly one user record.
// Concurrent first connections for one user collapse into a single store call.
type Directory struct {
	store Store
	group singleflight.Group

	mu    sync.RWMutex
	cache map[string]model.User
}

func NewDirectory(store Store) *Directory {
	return &Directory{
		store: store,
		cache: make(map[string]model.User),
	}
}

// Ensure returns the stored user for userID, creating it with a username
// derived from email when absent.
func (d *Directory) Ensure(ctx context.Context, userID, email string) (model.User, error) {
	d.mu.RLock()
	u, ok := d.cache[userID]
	d.mu.RUnlock()
	if ok {
		return u, nil
	}

	v, err, _ := d.group.Do(userID, func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), upsertTimeout)
		defer cancel()
		stored, err := d.store.UpsertUser(ctx, model.User{
			UserID:   userID,
			Email:    email,
			Username: model.DefaultUsername(userID, email),
		})
		if err != nil {
			return nil, err
		}
		d.mu.Lock()
		d.cache[userID] = *stored
		d.mu.Unlock()
		return *stored, nil
	})
	if err != nil {
		log.Error().Err(err).Str("module", "users").Str("user_id", userID).Msg("user upsert failed")
		return model.User{}, apperr.Storage(err)
	}
	return v.(model.User), nil
}
