package presence

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPresenceFollowsConnections(t *testing.T) {
	r := NewRegistry()
	alice := Identity{UserID: "u1", Username: "alice"}

	r.Add("c1", alice)
	r.Add("c2", alice)
	assert.True(t, r.IsPresent("u1"))
	users, conns := r.Stats()
	assert.Equal(t, 1, users)
	assert.Equal(t, 2, conns)

	id, last, ok := r.Remove("c1")
	assert.True(t, ok)
	assert.False(t, last)
	assert.Equal(t, alice, id)
	assert.True(t, r.IsPresent("u1"))

	_, last, ok = r.Remove("c2")
	assert.True(t, ok)
	assert.True(t, last)
	assert.False(t, r.IsPresent("u1"))

	_, _, ok = r.Remove("c2")
	assert.False(t, ok)
}

func TestReAddMovesConnection(t *testing.T) {
	r := NewRegistry()
	r.Add("c1", Identity{UserID: "u1"})
	r.Add("c1", Identity{UserID: "u2"})

	assert.False(t, r.IsPresent("u1"))
	assert.True(t, r.IsPresent("u2"))
	users, conns := r.Stats()
	assert.Equal(t, 1, users)
	assert.Equal(t, 1, conns)
}

func TestConcurrentAccess(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			conn := fmt.Sprintf("c%d", i)
			r.Add(conn, Identity{UserID: fmt.Sprintf("u%d", i%5)})
			r.IsPresent("u0")
			r.Remove(conn)
		}(i)
	}
	wg.Wait()

	users, conns := r.Stats()
	assert.Zero(t, users)
	assert.Zero(t, conns)
}
