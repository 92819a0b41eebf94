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

const (
	// MinGroupMembers counts the creator.
	MinGroupMembers = 3
	MaxGroupMembers = 100
)

// ChatService manages chats and group membership. Direct chats only come
// from accepted friend requests and their membership never changes.
type ChatService struct {
	store repository.Store
	pub   Publisher
	log   *slog.Logger
}

func NewChatService(store repository.Store, pub Publisher, log *slog.Logger) *ChatService {
	return &ChatService{
		store: store,
		pub:   pub,
		log:   log.With(slog.String("component", "chats")),
	}
}

// CreateGroup creates a group owned by creatorID with the given members.
func (s *ChatService) CreateGroup(ctx context.Context, creatorID uuid.UUID, name string, memberIDs []uuid.UUID) (*domain.Chat, error) {
	others := lo.Without(validIDs(memberIDs), creatorID)
	if len(others)+1 < MinGroupMembers {
		return nil, ErrGroupTooSmall
	}
	if len(others)+1 > MaxGroupMembers {
		return nil, ErrGroupFull
	}
	if err := s.ensureUsersExist(ctx, append([]uuid.UUID{creatorID}, others...)); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	chat := &domain.Chat{
		ID:        uuid.New(),
		Name:      name,
		GroupChat: true,
		CreatorID: &creatorID,
		Members:   append([]uuid.UUID{creatorID}, others...),
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := runTx(ctx, s.store, func(tx repository.Tx) error {
		if err := tx.CreateChat(ctx, chat); err != nil {
			return fmt.Errorf("creating group chat: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	publish(ctx, s.pub, s.log, domain.EventChatsChanged, chat.Members,
		domain.ChatsChangedPayload{ChatID: chat.ID, Members: chat.Members})

	return chat, nil
}

// AddMembers adds users to a group. Any member may add. Ids that are
// already members are ignored.
func (s *ChatService) AddMembers(ctx context.Context, chatID, actorID uuid.UUID, newMemberIDs []uuid.UUID) (*domain.Chat, error) {
	ids := validIDs(newMemberIDs)
	if err := s.ensureUsersExist(ctx, ids); err != nil {
		return nil, err
	}

	var (
		chat  *domain.Chat
		added []uuid.UUID
	)
	err := runTx(ctx, s.store, func(tx repository.Tx) error {
		chat, added = nil, nil

		c, err := tx.GetChat(ctx, chatID)
		if err != nil {
			return err
		}
		if c == nil {
			return ErrChatNotFound
		}
		if !c.IsMember(actorID) {
			return ErrNotAuthorized
		}
		if !c.GroupChat {
			return ErrNotAGroupChat
		}

		fresh := lo.Filter(ids, func(id uuid.UUID, _ int) bool {
			return !c.IsMember(id)
		})
		chat = c
		if len(fresh) == 0 {
			return nil
		}
		if len(c.Members)+len(fresh) > MaxGroupMembers {
			return ErrGroupFull
		}

		c.Members = append(c.Members, fresh...)
		c.UpdatedAt = time.Now().UTC()
		if err := tx.UpdateChat(ctx, c); err != nil {
			return fmt.Errorf("adding members: %w", err)
		}
		added = fresh
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(added) > 0 {
		publish(ctx, s.pub, s.log, domain.EventMembersAdded, chat.Members,
			domain.MembersAddedPayload{ChatID: chat.ID, Added: added})
	}
	return chat, nil
}

// RemoveMember removes targetID from a group. Only the creator may remove.
// A creator removing themself hands the group to the earliest-added member.
func (s *ChatService) RemoveMember(ctx context.Context, chatID, actorID, targetID uuid.UUID) (*domain.Chat, error) {
	var chat *domain.Chat
	err := runTx(ctx, s.store, func(tx repository.Tx) error {
		chat = nil

		c, err := tx.GetChat(ctx, chatID)
		if err != nil {
			return err
		}
		if c == nil {
			return ErrChatNotFound
		}
		if !c.GroupChat {
			return ErrNotAGroupChat
		}
		if !c.IsCreator(actorID) {
			return ErrNotAuthorized
		}
		if !c.IsMember(targetID) {
			return ErrNotAMember
		}
		if len(c.Members) == 1 {
			return ErrLastMemberViolation
		}

		c.RemoveMember(targetID)
		c.UpdatedAt = time.Now().UTC()
		if err := tx.UpdateChat(ctx, c); err != nil {
			return fmt.Errorf("removing member: %w", err)
		}
		chat = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	publish(ctx, s.pub, s.log, domain.EventMembersRemoved, chat.Members,
		domain.MembersRemovedPayload{ChatID: chat.ID, Removed: targetID})

	return chat, nil
}

// LeaveGroup removes the actor from a group. The last member leaving deletes
// the group, in which case the returned chat is nil.
func (s *ChatService) LeaveGroup(ctx context.Context, chatID, actorID uuid.UUID) (*domain.Chat, error) {
	var (
		chat    *domain.Chat
		deleted bool
	)
	err := runTx(ctx, s.store, func(tx repository.Tx) error {
		chat, deleted = nil, false

		c, err := tx.GetChat(ctx, chatID)
		if err != nil {
			return err
		}
		if c == nil {
			return ErrChatNotFound
		}
		if !c.GroupChat {
			return ErrNotAGroupChat
		}
		if !c.IsMember(actorID) {
			return ErrNotAMember
		}

		if len(c.Members) == 1 {
			if err := tx.DeleteChat(ctx, c.ID); err != nil {
				return fmt.Errorf("deleting chat: %w", err)
			}
			deleted = true
			return nil
		}

		c.RemoveMember(actorID)
		c.UpdatedAt = time.Now().UTC()
		if err := tx.UpdateChat(ctx, c); err != nil {
			return fmt.Errorf("leaving group: %w", err)
		}
		chat = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	if deleted {
		// Only the leaver's other devices are left to tell.
		publish(ctx, s.pub, s.log, domain.EventChatDeleted, []uuid.UUID{actorID},
			domain.ChatDeletedPayload{ChatID: chatID})
		return nil, nil
	}

	publish(ctx, s.pub, s.log, domain.EventMembersRemoved, chat.Members,
		domain.MembersRemovedPayload{ChatID: chat.ID, Removed: actorID})
	return chat, nil
}

// GetChat returns a chat with member summaries. Only members may read it.
func (s *ChatService) GetChat(ctx context.Context, chatID, userID uuid.UUID) (*domain.ChatDetails, error) {
	chat, err := s.store.Chats().GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if chat == nil {
		return nil, ErrChatNotFound
	}
	if !chat.IsMember(userID) {
		return nil, ErrNotAuthorized
	}

	users, err := s.store.Users().ListByIDs(ctx, chat.Members)
	if err != nil {
		return nil, err
	}
	byID := lo.KeyBy(users, func(u domain.User) uuid.UUID { return u.ID })

	details := &domain.ChatDetails{Chat: *chat, MemberSummaries: []domain.UserSummary{}}
	for _, id := range chat.Members {
		if u, ok := byID[id]; ok {
			details.MemberSummaries = append(details.MemberSummaries, u.Summary())
		}
	}
	return details, nil
}

// ListChats returns every chat the user belongs to, most recently changed first.
func (s *ChatService) ListChats(ctx context.Context, userID uuid.UUID) ([]domain.Chat, error) {
	chats, err := s.store.Chats().ListByMember(ctx, userID)
	if err != nil {
		return nil, err
	}
	if chats == nil {
		chats = []domain.Chat{}
	}
	return chats, nil
}

// ListGroups returns the groups the user created.
func (s *ChatService) ListGroups(ctx context.Context, userID uuid.UUID) ([]domain.Chat, error) {
	chats, err := s.ListChats(ctx, userID)
	if err != nil {
		return nil, err
	}
	return lo.Filter(chats, func(c domain.Chat, _ int) bool {
		return c.GroupChat && c.IsCreator(userID)
	}), nil
}

func (s *ChatService) RenameGroup(ctx context.Context, chatID, actorID uuid.UUID, name string) (*domain.Chat, error) {
	var chat *domain.Chat
	err := runTx(ctx, s.store, func(tx repository.Tx) error {
		chat = nil

		c, err := tx.GetChat(ctx, chatID)
		if err != nil {
			return err
		}
		if c == nil {
			return ErrChatNotFound
		}
		if !c.GroupChat {
			return ErrNotAGroupChat
		}
		if !c.IsCreator(actorID) {
			return ErrNotAuthorized
		}

		c.Name = name
		c.UpdatedAt = time.Now().UTC()
		if err := tx.UpdateChat(ctx, c); err != nil {
			return fmt.Errorf("renaming group: %w", err)
		}
		chat = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	publish(ctx, s.pub, s.log, domain.EventGroupRenamed, chat.Members,
		domain.GroupRenamedPayload{ChatID: chat.ID, Name: chat.Name})

	return chat, nil
}

// DeleteChat deletes a group (creator only) or a direct chat (either member).
func (s *ChatService) DeleteChat(ctx context.Context, chatID, actorID uuid.UUID) error {
	var members []uuid.UUID
	err := runTx(ctx, s.store, func(tx repository.Tx) error {
		members = nil

		c, err := tx.GetChat(ctx, chatID)
		if err != nil {
			return err
		}
		if c == nil {
			return ErrChatNotFound
		}
		if c.GroupChat && !c.IsCreator(actorID) {
			return ErrNotAuthorized
		}
		if !c.GroupChat && !c.IsMember(actorID) {
			return ErrNotAuthorized
		}

		if err := tx.DeleteChat(ctx, c.ID); err != nil {
			return fmt.Errorf("deleting chat: %w", err)
		}
		members = c.Members
		return nil
	})
	if err != nil {
		return err
	}

	publish(ctx, s.pub, s.log, domain.EventChatDeleted, members,
		domain.ChatDeletedPayload{ChatID: chatID})
	return nil
}

func (s *ChatService) ensureUsersExist(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	users, err := s.store.Users().ListByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("looking up users: %w", err)
	}
	if len(users) != len(ids) {
		return ErrUserNotFound
	}
	return nil
}

func validIDs(ids []uuid.UUID) []uuid.UUID {
	return lo.Uniq(lo.Filter(ids, func(id uuid.UUID, _ int) bool {
		return id != uuid.Nil
	}))
}
