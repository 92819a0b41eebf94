package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Chat is either a direct chat between two friends or a group chat.
// Members are kept in join order, earliest first.
type Chat struct {
	ID        uuid.UUID   `json:"id"`
	Name      string      `json:"name"`
	GroupChat bool        `json:"group_chat"`
	CreatorID *uuid.UUID  `json:"creator_id,omitempty"`
	Members   []uuid.UUID `json:"members"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

func (c *Chat) IsMember(userID uuid.UUID) bool {
	return lo.Contains(c.Members, userID)
}

func (c *Chat) IsCreator(userID uuid.UUID) bool {
	return c.CreatorID != nil && *c.CreatorID == userID
}

// DirectKey is the pair key of a direct chat, empty for groups.
func (c *Chat) DirectKey() string {
	if c.GroupChat || len(c.Members) != 2 {
		return ""
	}
	return PairKey(c.Members[0], c.Members[1])
}

// OtherMember returns the member of a direct chat that is not userID.
func (c *Chat) OtherMember(userID uuid.UUID) (uuid.UUID, bool) {
	if c.GroupChat {
		return uuid.Nil, false
	}
	for _, m := range c.Members {
		if m != userID {
			return m, true
		}
	}
	return uuid.Nil, false
}

// RemoveMember drops userID from the members. When the creator leaves,
// creatorship passes to the earliest-added remaining member.
func (c *Chat) RemoveMember(userID uuid.UUID) {
	c.Members = lo.Without(c.Members, userID)
	if c.IsCreator(userID) && len(c.Members) > 0 {
		next := c.Members[0]
		c.CreatorID = &next
	}
}

// ChatDetails is a chat with its members resolved to summaries.
type ChatDetails struct {
	Chat
	MemberSummaries []UserSummary `json:"member_details"`
}
