package domain

import "github.com/google/uuid"

// EventKind names a real-time event pushed to connected clients.
type EventKind string

const (
	EventNewFriendRequest EventKind = "request.new"
	EventChatsChanged     EventKind = "chats.changed"
	EventMembersAdded     EventKind = "members.added"
	EventMembersRemoved   EventKind = "members.removed"
	EventChatDeleted      EventKind = "chat.deleted"
	EventGroupRenamed     EventKind = "group.renamed"
	EventPresence         EventKind = "presence"
)

var eventKinds = map[EventKind]struct{}{
	EventNewFriendRequest: {},
	EventChatsChanged:     {},
	EventMembersAdded:     {},
	EventMembersRemoved:   {},
	EventChatDeleted:      {},
	EventGroupRenamed:     {},
	EventPresence:         {},
}

func (k EventKind) Valid() bool {
	_, ok := eventKinds[k]
	return ok
}

// --- Payloads ---

type NewFriendRequestPayload struct {
	RequestID uuid.UUID   `json:"request_id"`
	Sender    UserSummary `json:"sender"`
}

type ChatsChangedPayload struct {
	ChatID  uuid.UUID   `json:"chat_id"`
	Members []uuid.UUID `json:"members"`
}

type MembersAddedPayload struct {
	ChatID uuid.UUID   `json:"chat_id"`
	Added  []uuid.UUID `json:"added"`
}

type MembersRemovedPayload struct {
	ChatID  uuid.UUID `json:"chat_id"`
	Removed uuid.UUID `json:"removed"`
}

type ChatDeletedPayload struct {
	ChatID uuid.UUID `json:"chat_id"`
}

type GroupRenamedPayload struct {
	ChatID uuid.UUID `json:"chat_id"`
	Name   string    `json:"name"`
}

const (
	PresenceOnline  = "online"
	PresenceOffline = "offline"
)

type PresencePayload struct {
	UserID uuid.UUID `json:"user_id"`
	Status string    `json:"status"`
}
