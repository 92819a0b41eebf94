package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/ourchat/internal/domain"
	"github.com/vedran77/ourchat/internal/mocks"
	"github.com/vedran77/ourchat/internal/repository"
	"github.com/vedran77/ourchat/internal/repository/badgerstore"
	"go.uber.org/mock/gomock"
)

type fixture struct {
	store    *badgerstore.Store
	pub      *mocks.MockPublisher
	requests *RequestService
	chats    *ChatService
	users    []uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	store, err := badgerstore.OpenInMemory(slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	pub := mocks.NewMockPublisher(ctrl)
	f := &fixture{
		store:    store,
		pub:      pub,
		requests: NewRequestService(store, pub, slog.Default()),
		chats:    NewChatService(store, pub, slog.Default()),
	}
	// Every test ends with the pair invariant intact.
	t.Cleanup(func() { f.checkPairInvariant(t) })
	return f
}

func (f *fixture) user(t *testing.T, name string) uuid.UUID {
	t.Helper()
	now := time.Now().UTC()
	u := &domain.User{
		ID: uuid.New(), Username: name, Name: name,
		PasswordHash: "x", CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, f.store.Users().Create(context.Background(), u))
	f.users = append(f.users, u.ID)
	return u.ID
}

// befriend takes a pair through request and accept, swallowing the events.
func (f *fixture) befriend(t *testing.T, a, b uuid.UUID) *domain.Chat {
	t.Helper()
	ctx := context.Background()
	f.pub.EXPECT().Publish(gomock.Any(), domain.EventNewFriendRequest, gomock.Any(), gomock.Any()).Return(nil)
	f.pub.EXPECT().Publish(gomock.Any(), domain.EventChatsChanged, gomock.Any(), gomock.Any()).Return(nil)

	req, err := f.requests.SendRequest(ctx, a, b)
	require.NoError(t, err)
	chat, err := f.requests.RespondToRequest(ctx, req.ID, b, true)
	require.NoError(t, err)
	return chat
}

// group creates a group owned by creator, swallowing the event.
func (f *fixture) group(t *testing.T, creator uuid.UUID, members ...uuid.UUID) *domain.Chat {
	t.Helper()
	f.pub.EXPECT().Publish(gomock.Any(), domain.EventChatsChanged, gomock.Any(), gomock.Any()).Return(nil)
	chat, err := f.chats.CreateGroup(context.Background(), creator, "group", members)
	require.NoError(t, err)
	return chat
}

// checkPairInvariant asserts that no pair has more than one pending request
// or more than one direct chat, and never both at once.
func (f *fixture) checkPairInvariant(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	requests := map[string]int{}
	directs := map[string]map[uuid.UUID]struct{}{}

	for _, u := range f.users {
		outgoing, err := f.store.Requests().ListOutgoing(ctx, u)
		require.NoError(t, err)
		for _, r := range outgoing {
			requests[r.PairKey()]++
		}

		chats, err := f.store.Chats().ListByMember(ctx, u)
		require.NoError(t, err)
		for _, c := range chats {
			if c.GroupChat {
				require.NotNil(t, c.CreatorID, "group %s has no creator", c.ID)
				require.True(t, c.IsMember(*c.CreatorID), "creator of %s is not a member", c.ID)
				require.NotEmpty(t, c.Members)
				continue
			}
			require.Len(t, c.Members, 2)
			key := c.DirectKey()
			if directs[key] == nil {
				directs[key] = map[uuid.UUID]struct{}{}
			}
			directs[key][c.ID] = struct{}{}
		}
	}

	for key, n := range requests {
		require.LessOrEqual(t, n, 1, "pair %s has %d requests", key, n)
		require.Empty(t, directs[key], "pair %s is both pending and connected", key)
	}
	for key, ids := range directs {
		require.LessOrEqual(t, len(ids), 1, "pair %s has %d direct chats", key, len(ids))
	}
}

// seed writes records directly, bypassing the services.
func (f *fixture) seed(t *testing.T, fn func(ctx context.Context, tx repository.Tx) error) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.store.InTx(ctx, func(tx repository.Tx) error { return fn(ctx, tx) }))
}
