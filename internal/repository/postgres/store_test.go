package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/ourchat/internal/domain"
	"github.com/vedran77/ourchat/internal/repository"
)

func Test_MapConflict(t *testing.T) {
	req := require.New(t)

	for _, code := range []string{"40001", "40P01", "23505"} {
		err := errors.Wrap(&pgconn.PgError{Code: code}, "insert")
		req.ErrorIs(mapConflict(err), repository.ErrConflict, code)
	}

	other := &pgconn.PgError{Code: "23503"}
	req.Equal(error(other), mapConflict(other))
}

// openTestStore connects to OURCHAT_TEST_DATABASE_URL, skipping the test
// when it is not set.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("OURCHAT_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("OURCHAT_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	store, err := New(ctx, pool)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func createUser(t *testing.T, s *Store, name string) *domain.User {
	t.Helper()
	now := time.Now().UTC()
	u := &domain.User{
		ID: uuid.New(), Username: name + "_" + uuid.NewString()[:8], Name: name,
		PasswordHash: "x", CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, s.Users().Create(context.Background(), u))
	return u
}

func Test_Users(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	s := openTestStore(t)
	alice := createUser(t, s, "alice")

	got, err := s.Users().GetByUsername(ctx, alice.Username)
	req.NoError(err)
	req.Equal(alice.ID, got.ID)

	dup := *alice
	dup.ID = uuid.New()
	req.ErrorIs(s.Users().Create(ctx, &dup), repository.ErrConflict)

	missing, err := s.Users().GetByID(ctx, uuid.New())
	req.NoError(err)
	req.Nil(missing)
}

func Test_Request_To_Direct_Chat(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	s := openTestStore(t)
	alice, bob := createUser(t, s, "alice"), createUser(t, s, "bob")

	// Given a pending request
	fr := &domain.FriendRequest{ID: uuid.New(), SenderID: alice.ID, ReceiverID: bob.ID, CreatedAt: time.Now().UTC()}
	req.NoError(s.InTx(ctx, func(tx repository.Tx) error {
		if err := tx.LockPair(ctx, alice.ID, bob.ID); err != nil {
			return err
		}
		return tx.CreateRequest(ctx, fr)
	}))

	found, err := s.Requests().FindByPair(ctx, bob.ID, alice.ID)
	req.NoError(err)
	req.Equal(fr.ID, found.ID)

	incoming, err := s.Requests().ListIncoming(ctx, bob.ID)
	req.NoError(err)
	req.Len(incoming, 1)
	req.Equal("alice", incoming[0].Sender.Name)

	// When it is accepted
	chat := &domain.Chat{
		ID: uuid.New(), Name: "alice-bob", Members: []uuid.UUID{alice.ID, bob.ID},
		CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
	}
	req.NoError(s.InTx(ctx, func(tx repository.Tx) error {
		deleted, err := tx.DeleteRequest(ctx, fr.ID)
		if err != nil {
			return err
		}
		req.True(deleted)
		return tx.CreateChat(ctx, chat)
	}))

	// Then the pair is connected
	direct, err := s.Chats().FindDirect(ctx, bob.ID, alice.ID)
	req.NoError(err)
	req.Equal(chat.ID, direct.ID)
	req.Equal([]uuid.UUID{alice.ID, bob.ID}, direct.Members)

	gone, err := s.Requests().GetByID(ctx, fr.ID)
	req.NoError(err)
	req.Nil(gone)

	// And a second direct chat for the pair is refused
	second := *chat
	second.ID = uuid.New()
	err = s.InTx(ctx, func(tx repository.Tx) error { return tx.CreateChat(ctx, &second) })
	req.ErrorIs(err, repository.ErrConflict)
}

func Test_Group_Membership_Update(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	s := openTestStore(t)
	carol, dave, erin := createUser(t, s, "carol"), createUser(t, s, "dave"), createUser(t, s, "erin")

	now := time.Now().UTC()
	g := &domain.Chat{
		ID: uuid.New(), Name: "trio", GroupChat: true, CreatorID: &carol.ID,
		Members: []uuid.UUID{carol.ID, dave.ID, erin.ID}, CreatedAt: now, UpdatedAt: now,
	}
	req.NoError(s.InTx(ctx, func(tx repository.Tx) error { return tx.CreateChat(ctx, g) }))

	req.NoError(s.InTx(ctx, func(tx repository.Tx) error {
		c, err := tx.GetChat(ctx, g.ID)
		if err != nil {
			return err
		}
		c.RemoveMember(dave.ID)
		return tx.UpdateChat(ctx, c)
	}))

	stored, err := s.Chats().GetByID(ctx, g.ID)
	req.NoError(err)
	req.Equal([]uuid.UUID{carol.ID, erin.ID}, stored.Members)

	daves, err := s.Chats().ListByMember(ctx, dave.ID)
	req.NoError(err)
	req.Empty(daves)
}
