package rooms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	ann = Member{UserID: "u-ann", Name: "annie"}
	ben = Member{UserID: "u-ben", Name: "benny"}
	cat = Member{UserID: "u-cat", Name: "catty"}
)

func TestCreate_OneRoomPerUser(t *testing.T) {
	s := NewService()

	r, ok := s.Create(ann)
	require.True(t, ok)
	assert.NotEmpty(t, r.ID)
	assert.Equal(t, ann, r.Owner)

	again, ok := s.Create(ann)
	assert.False(t, ok)
	assert.Nil(t, again)
	assert.Equal(t, 1, s.Len())
}

func TestList_ExcludesOwnRooms(t *testing.T) {
	s := NewService()
	s.Create(ann)
	s.Create(ben)

	list := s.List(ann.UserID)
	require.Len(t, list, 1)
	assert.Equal(t, ben, list[0].Owner)

	assert.Len(t, s.List(cat.UserID), 2)
	assert.Len(t, s.List(""), 2)
}

func TestJoin(t *testing.T) {
	s := NewService()
	annRoom, _ := s.Create(ann)
	s.Create(ben)
	s.Create(cat)

	members, err := s.Join(annRoom.ID, ben)
	require.NoError(t, err)
	assert.Equal(t, [2]Member{ann, ben}, members)

	// both the joined room and the joiner's own room are closed
	list := s.List("")
	require.Len(t, list, 1)
	assert.Equal(t, cat, list[0].Owner)

	_, err = s.Join(annRoom.ID, cat)
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestJoin_OwnRoom(t *testing.T) {
	s := NewService()
	r, _ := s.Create(ann)

	_, err := s.Join(r.ID, ann)
	assert.ErrorIs(t, err, ErrOwnRoom)
	assert.Equal(t, 1, s.Len())
}

func TestRemoveOwnedBy(t *testing.T) {
	s := NewService()
	s.Create(ann)

	assert.False(t, s.RemoveOwnedBy(ben.UserID))
	assert.True(t, s.RemoveOwnedBy(ann.UserID))
	assert.Equal(t, 0, s.Len())

	_, ok := s.Create(ann)
	assert.True(t, ok)
}
