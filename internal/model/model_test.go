package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func presentSet(ids ...string) func(string) bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return func(id string) bool { return set[id] }
}

func TestDefaultUsername(t *testing.T) {
	tests := []struct {
		userID, email, want string
	}{
		{"u1", "ada@example.com", "ada"},
		{"u1", "no-at-sign", "no-at-sign"},
		{"u1", "@leading", "@leading"},
		{"u1", "", "u1"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DefaultUsername(tt.userID, tt.email), tt.email)
	}
}

func TestUpsertMember(t *testing.T) {
	r := &Room{RoomID: "r1"}

	assert.True(t, r.UpsertMember(Member{UserID: "a", Username: "alice"}))
	assert.True(t, r.UpsertMember(Member{UserID: "b", Username: "bob"}))
	assert.False(t, r.UpsertMember(Member{UserID: "a", Username: "alice"}))

	// Rename keeps roster position
	assert.True(t, r.UpsertMember(Member{UserID: "a", Username: "alicia"}))
	assert.Equal(t, []Member{{"a", "alicia"}, {"b", "bob"}}, r.Users)

	m, ok := r.RemoveMember("a")
	assert.True(t, ok)
	assert.Equal(t, "alicia", m.Username)
	assert.Equal(t, []Member{{"b", "bob"}}, r.Users)

	_, ok = r.RemoveMember("a")
	assert.False(t, ok)
}

func TestResolveAdmin(t *testing.T) {
	roster := []Member{{UserID: "a"}, {UserID: "b"}, {UserID: "c"}}

	tests := []struct {
		name      string
		admin     string
		present   []string
		wantAdmin string
		changed   bool
	}{
		{"first present becomes admin", "", []string{"b", "c"}, "b", true},
		{"present admin is kept", "c", []string{"a", "c"}, "c", false},
		{"absent admin is replaced", "a", []string{"c"}, "c", true},
		{"cleared when nobody present", "a", nil, "", true},
		{"stays empty when nobody present", "", nil, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Room{Users: append([]Member(nil), roster...), AdminID: tt.admin}
			present := r.PresentMembers(presentSet(tt.present...))
			assert.Equal(t, tt.changed, r.ResolveAdmin(present))
			assert.Equal(t, tt.wantAdmin, r.AdminID)
		})
	}
}

func TestShapeValid(t *testing.T) {
	assert.True(t, ShapeStar.Valid())
	assert.True(t, ShapeArrowLeft.Valid())
	assert.False(t, ShapeNone.Valid())
	assert.False(t, Shape("blob").Valid())

	assert.False(t, DrawingOp{}.IsShape())
	assert.True(t, DrawingOp{Shape: ShapeCircle}.IsShape())
}
