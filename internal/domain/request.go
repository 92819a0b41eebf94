package domain

import (
	"time"

	"github.com/google/uuid"
)

// FriendRequest is a pending request between two users. The record only
// exists while the request is pending: accepting or rejecting deletes it.
type FriendRequest struct {
	ID         uuid.UUID `json:"id"`
	SenderID   uuid.UUID `json:"sender_id"`
	ReceiverID uuid.UUID `json:"receiver_id"`
	CreatedAt  time.Time `json:"created_at"`
	// Joined fields
	Sender   *UserSummary `json:"sender,omitempty"`
	Receiver *UserSummary `json:"receiver,omitempty"`
}

// PairKey returns the key of the request's unordered user pair.
func (r *FriendRequest) PairKey() string {
	return PairKey(r.SenderID, r.ReceiverID)
}

// RelationshipState is derived from storage, never stored:
// a request record means pending, a direct chat means connected.
type RelationshipState string

const (
	RelationshipNone      RelationshipState = "none"
	RelationshipPending   RelationshipState = "pending"
	RelationshipConnected RelationshipState = "connected"
)

// CanonicalPair sorts two user ids so user1 < user2.
func CanonicalPair(a, b uuid.UUID) (uuid.UUID, uuid.UUID) {
	if a.String() > b.String() {
		return b, a
	}
	return a, b
}

// PairKey identifies an unordered pair of users.
func PairKey(a, b uuid.UUID) string {
	u1, u2 := CanonicalPair(a, b)
	return u1.String() + ":" + u2.String()
}
