package presence

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	id, user uuid.UUID
}

func (c *fakeConn) ID() uuid.UUID      { return c.id }
func (c *fakeConn) UserID() uuid.UUID  { return c.user }
func (c *fakeConn) Send(_ []byte) bool { return true }

func newConn(user uuid.UUID) *fakeConn {
	return &fakeConn{id: uuid.New(), user: user}
}

func connIDs(conns []Conn) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(conns))
	for _, c := range conns {
		ids = append(ids, c.ID())
	}
	return ids
}

func Test_Register_Reports_First_Connection(t *testing.T) {
	req := require.New(t)
	r := NewRegistry(4)
	alice := uuid.New()

	// When
	first, _ := r.Register(newConn(alice))
	second, _ := r.Register(newConn(alice))

	// Then
	req.True(first)
	req.False(second)
	req.Equal(2, r.ConnectionCount(alice))
	req.True(r.Online(alice))
}

func Test_Register_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	r := NewRegistry(4)
	alice := uuid.New()
	c := newConn(alice)

	first, _ := r.Register(c)
	req.True(first)
	again, left := r.Register(c)
	req.False(again)
	req.Equal(uuid.Nil, left)

	req.Equal(1, r.ConnectionCount(alice))
}

func Test_Register_Moves_Handle_Between_Users(t *testing.T) {
	req := require.New(t)
	r := NewRegistry(4)
	alice, bob := uuid.New(), uuid.New()

	// Given
	c := newConn(alice)
	r.Register(c)

	// When the same handle shows up for another user
	moved := &fakeConn{id: c.id, user: bob}
	first, left := r.Register(moved)

	// Then it lives only under bob and alice is reported offline
	req.True(first)
	req.Equal(alice, left)
	req.False(r.Online(alice))
	req.Equal(1, r.ConnectionCount(bob))
	users, conns := r.Stats()
	req.Equal(1, users)
	req.Equal(1, conns)
}

func Test_Register_Move_Keeps_Owner_With_Other_Connections_Online(t *testing.T) {
	req := require.New(t)
	r := NewRegistry(4)
	alice, bob := uuid.New(), uuid.New()

	// Given alice on two devices
	c := newConn(alice)
	r.Register(c)
	r.Register(newConn(alice))

	// When one handle moves to bob
	_, left := r.Register(&fakeConn{id: c.id, user: bob})

	// Then alice is still online
	req.Equal(uuid.Nil, left)
	req.Equal(1, r.ConnectionCount(alice))
	req.Equal(1, r.ConnectionCount(bob))
}

func Test_Unregister_Removes_Empty_Entry(t *testing.T) {
	req := require.New(t)
	r := NewRegistry(4)
	alice := uuid.New()
	phone, laptop := newConn(alice), newConn(alice)
	r.Register(phone)
	r.Register(laptop)

	// When
	owner, last := r.Unregister(phone.ID())
	req.Equal(alice, owner)
	req.False(last)

	owner, last = r.Unregister(laptop.ID())

	// Then
	req.Equal(alice, owner)
	req.True(last)
	req.False(r.Online(alice))
	users, conns := r.Stats()
	req.Zero(users)
	req.Zero(conns)
}

func Test_Unregister_Unknown_Handle_Is_Noop(t *testing.T) {
	req := require.New(t)
	r := NewRegistry(4)
	alice := uuid.New()
	c := newConn(alice)
	r.Register(c)

	_, last := r.Unregister(c.ID())
	req.True(last)

	owner, last := r.Unregister(c.ID())
	req.Equal(uuid.Nil, owner)
	req.False(last)
}

func Test_Resolve_Returns_Each_Connection_Once(t *testing.T) {
	req := require.New(t)
	r := NewRegistry(4)
	alice, bob, carol := uuid.New(), uuid.New(), uuid.New()

	// Given
	a1, a2, b1 := newConn(alice), newConn(alice), newConn(bob)
	r.Register(a1)
	r.Register(a2)
	r.Register(b1)

	// When alice is listed twice and carol is offline
	got := r.Resolve([]uuid.UUID{alice, bob, alice, carol})

	// Then
	req.ElementsMatch([]uuid.UUID{a1.id, a2.id, b1.id}, connIDs(got))
}

func Test_Resolve_Offline_Is_Empty(t *testing.T) {
	r := NewRegistry(4)
	require.Empty(t, r.Resolve([]uuid.UUID{uuid.New()}))
}

func Test_Concurrent_Register_Unregister_Resolve(t *testing.T) {
	req := require.New(t)
	r := NewRegistry(8)
	users := make([]uuid.UUID, 16)
	for i := range users {
		users[i] = uuid.New()
	}

	var wg sync.WaitGroup
	for i := range 64 {
		wg.Add(1)
		go func(user uuid.UUID) {
			defer wg.Done()
			for range 100 {
				c := newConn(user)
				r.Register(c)
				_ = r.Resolve(users)
				r.Unregister(c.ID())
			}
		}(users[i%len(users)])
	}
	wg.Wait()

	usersOnline, conns := r.Stats()
	req.Zero(usersOnline)
	req.Zero(conns)
}
