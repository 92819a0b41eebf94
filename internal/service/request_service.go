package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/vedran77/ourchat/internal/domain"
	"github.com/vedran77/ourchat/internal/repository"
)

// RequestService runs the friend request lifecycle. Per user pair the state
// moves from NONE to PENDING and then to CONNECTED or back to NONE. It is derived from two
// storage facts: a pending request record, or a direct chat.
type RequestService struct {
	store repository.Store
	pub   Publisher
	log   *slog.Logger
}

func NewRequestService(store repository.Store, pub Publisher, log *slog.Logger) *RequestService {
	return &RequestService{
		store: store,
		pub:   pub,
		log:   log.With(slog.String("component", "requests")),
	}
}

// SendRequest creates a pending request from sender to receiver. It fails
// if the pair already has a request in either direction or a direct chat.
func (s *RequestService) SendRequest(ctx context.Context, senderID, receiverID uuid.UUID) (*domain.FriendRequest, error) {
	if senderID == receiverID {
		return nil, ErrCannotRequestSelf
	}

	sender, err := s.store.Users().GetByID(ctx, senderID)
	if err != nil {
		return nil, fmt.Errorf("looking up sender: %w", err)
	}
	receiver, err := s.store.Users().GetByID(ctx, receiverID)
	if err != nil {
		return nil, fmt.Errorf("looking up receiver: %w", err)
	}
	if sender == nil || receiver == nil {
		return nil, ErrUserNotFound
	}

	var created *domain.FriendRequest
	err = runTx(ctx, s.store, func(tx repository.Tx) error {
		created = nil
		if err := tx.LockPair(ctx, senderID, receiverID); err != nil {
			return err
		}

		existing, err := tx.FindRequestByPair(ctx, senderID, receiverID)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrDuplicateRequest
		}
		chat, err := tx.FindDirectChat(ctx, senderID, receiverID)
		if err != nil {
			return err
		}
		if chat != nil {
			return ErrDuplicateRequest
		}

		req := &domain.FriendRequest{
			ID:         uuid.New(),
			SenderID:   senderID,
			ReceiverID: receiverID,
			CreatedAt:  time.Now().UTC(),
		}
		if err := tx.CreateRequest(ctx, req); err != nil {
			return fmt.Errorf("creating friend request: %w", err)
		}
		created = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	summary := sender.Summary()
	created.Sender = &summary
	publish(ctx, s.pub, s.log, domain.EventNewFriendRequest, []uuid.UUID{receiverID},
		domain.NewFriendRequestPayload{RequestID: created.ID, Sender: summary})

	return created, nil
}

// RespondToRequest accepts or rejects a pending request. Only the receiver
// may respond. Accepting deletes the request and creates the direct chat in
// one transaction; the returned chat is nil on reject.
//
// If the pair is already connected the request is still deleted and
// ErrAlreadyConnected is returned.
func (s *RequestService) RespondToRequest(ctx context.Context, requestID, responderID uuid.UUID, accept bool) (*domain.Chat, error) {
	var (
		chat  *domain.Chat
		stale bool
	)
	err := runTx(ctx, s.store, func(tx repository.Tx) error {
		chat, stale = nil, false

		req, err := tx.GetRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if req == nil {
			return ErrRequestNotFound
		}
		if req.ReceiverID != responderID {
			return ErrNotAuthorized
		}
		if err := tx.LockPair(ctx, req.SenderID, req.ReceiverID); err != nil {
			return err
		}

		// The delete is the commit point: whoever removes the record wins.
		deleted, err := tx.DeleteRequest(ctx, req.ID)
		if err != nil {
			return fmt.Errorf("deleting friend request: %w", err)
		}
		if !deleted {
			return ErrRequestNotFound
		}
		if !accept {
			return nil
		}

		existing, err := tx.FindDirectChat(ctx, req.SenderID, req.ReceiverID)
		if err != nil {
			return err
		}
		if existing != nil {
			stale = true
			return nil
		}

		c, err := s.newDirectChat(ctx, req)
		if err != nil {
			return err
		}
		if err := tx.CreateChat(ctx, c); err != nil {
			return fmt.Errorf("creating direct chat: %w", err)
		}
		chat = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	if stale {
		return nil, ErrAlreadyConnected
	}
	if chat == nil {
		return nil, nil
	}

	publish(ctx, s.pub, s.log, domain.EventChatsChanged, chat.Members,
		domain.ChatsChangedPayload{ChatID: chat.ID, Members: chat.Members})

	return chat, nil
}

func (s *RequestService) newDirectChat(ctx context.Context, req *domain.FriendRequest) (*domain.Chat, error) {
	sender, err := s.store.Users().GetByID(ctx, req.SenderID)
	if err != nil {
		return nil, err
	}
	receiver, err := s.store.Users().GetByID(ctx, req.ReceiverID)
	if err != nil {
		return nil, err
	}
	if sender == nil || receiver == nil {
		return nil, ErrUserNotFound
	}

	now := time.Now().UTC()
	return &domain.Chat{
		ID:        uuid.New(),
		Name:      sender.Name + "-" + receiver.Name,
		GroupChat: false,
		Members:   []uuid.UUID{sender.ID, receiver.ID},
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// CancelRequest withdraws a pending request. Only the sender may cancel.
func (s *RequestService) CancelRequest(ctx context.Context, requestID, senderID uuid.UUID) error {
	return runTx(ctx, s.store, func(tx repository.Tx) error {
		req, err := tx.GetRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if req == nil {
			return ErrRequestNotFound
		}
		if req.SenderID != senderID {
			return ErrNotRequestSender
		}

		deleted, err := tx.DeleteRequest(ctx, req.ID)
		if err != nil {
			return fmt.Errorf("deleting friend request: %w", err)
		}
		if !deleted {
			return ErrRequestNotFound
		}
		return nil
	})
}

// ListIncoming returns pending requests received by the user.
func (s *RequestService) ListIncoming(ctx context.Context, userID uuid.UUID) ([]domain.FriendRequest, error) {
	reqs, err := s.store.Requests().ListIncoming(ctx, userID)
	if err != nil {
		return nil, err
	}
	if reqs == nil {
		reqs = []domain.FriendRequest{}
	}
	return reqs, nil
}

// ListOutgoing returns pending requests sent by the user.
func (s *RequestService) ListOutgoing(ctx context.Context, userID uuid.UUID) ([]domain.FriendRequest, error) {
	reqs, err := s.store.Requests().ListOutgoing(ctx, userID)
	if err != nil {
		return nil, err
	}
	if reqs == nil {
		reqs = []domain.FriendRequest{}
	}
	return reqs, nil
}

// FriendIDs returns the users sharing a direct chat with userID.
func (s *RequestService) FriendIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	chats, err := s.store.Chats().ListByMember(ctx, userID)
	if err != nil {
		return nil, err
	}

	var ids []uuid.UUID
	for i := range chats {
		if other, ok := chats[i].OtherMember(userID); ok {
			ids = append(ids, other)
		}
	}
	return lo.Uniq(ids), nil
}

// ListFriends returns the user's friends. With excludeChatID set, friends
// already in that chat are left out, which is what the add-members picker
// needs.
func (s *RequestService) ListFriends(ctx context.Context, userID uuid.UUID, excludeChatID *uuid.UUID) ([]domain.UserSummary, error) {
	ids, err := s.FriendIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	if excludeChatID != nil {
		chat, err := s.store.Chats().GetByID(ctx, *excludeChatID)
		if err != nil {
			return nil, err
		}
		if chat == nil {
			return nil, ErrChatNotFound
		}
		if !chat.IsMember(userID) {
			return nil, ErrNotAuthorized
		}
		ids = lo.Without(ids, chat.Members...)
	}

	users, err := s.store.Users().ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	return lo.Map(users, func(u domain.User, _ int) domain.UserSummary {
		return u.Summary()
	}), nil
}

// Relationship derives the pair's state from storage.
func (s *RequestService) Relationship(ctx context.Context, a, b uuid.UUID) (domain.RelationshipState, error) {
	req, err := s.store.Requests().FindByPair(ctx, a, b)
	if err != nil {
		return "", err
	}
	if req != nil {
		return domain.RelationshipPending, nil
	}

	chat, err := s.store.Chats().FindDirect(ctx, a, b)
	if err != nil {
		return "", err
	}
	if chat != nil {
		return domain.RelationshipConnected, nil
	}
	return domain.RelationshipNone, nil
}
