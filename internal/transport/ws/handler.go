package ws

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/vedran77/ourchat/internal/auth"
	"github.com/vedran77/ourchat/internal/domain"
	"github.com/vedran77/ourchat/internal/presence"
	"nhooyr.io/websocket"
)

type TokenVerifier interface {
	Verify(token string) (uuid.UUID, error)
}

// FriendLister returns the users that see a user's presence.
type FriendLister interface {
	FriendIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

// PresenceTracker counts the nodes a user is online on. Join and Leave are
// called on the node-local first and last connection and report the
// cluster-wide transition.
type PresenceTracker interface {
	Join(ctx context.Context, userID uuid.UUID) (first bool, err error)
	Leave(ctx context.Context, userID uuid.UUID) (last bool, err error)
}

// Handler upgrades authenticated requests to websocket clients and keeps the
// presence registry in step with their lifetime.
type Handler struct {
	registry   *presence.Registry
	fanout     *Fanout
	tokens     TokenVerifier
	friends    FriendLister
	tracker    PresenceTracker
	origins    []string
	sendBuffer int
	log        *slog.Logger
}

type HandlerConfig struct {
	// AllowedOrigins are full origins such as "http://localhost:5173".
	AllowedOrigins []string
	SendBuffer     int
	// Tracker is set when several nodes share users. Without it presence
	// is announced on the local transitions.
	Tracker        PresenceTracker
}

func NewHandler(registry *presence.Registry, fanout *Fanout, tokens TokenVerifier, friends FriendLister, cfg HandlerConfig, log *slog.Logger) *Handler {
	origins := make([]string, 0, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		o = strings.TrimPrefix(strings.TrimPrefix(o, "https://"), "http://")
		if o != "" {
			origins = append(origins, o)
		}
	}
	return &Handler{
		registry:   registry,
		fanout:     fanout,
		tokens:     tokens,
		friends:    friends,
		tracker:    cfg.Tracker,
		origins:    origins,
		sendBuffer: cfg.SendBuffer,
		log:        log.With(slog.String("component", "ws")),
	}
}

// ServeHTTP blocks for the lifetime of the connection.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	tokenStr := auth.TokenFromRequest(r)
	if tokenStr == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	userID, err := h.tokens.Verify(tokenStr)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.origins,
	})
	if err != nil {
		h.log.Warn("accept error", slog.Any("error", err))
		return
	}

	client := NewClient(conn, userID, h.sendBuffer, h.log)
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	first, left := h.registry.Register(client)
	if left != uuid.Nil {
		h.wentOffline(ctx, left)
	}
	if first {
		h.cameOnline(ctx, userID)
	}
	h.log.Debug("client connected", slog.String("user_id", userID.String()))

	go func() {
		client.WritePump(ctx)
		// A dead writer must also end the reader.
		cancel()
	}()
	client.ReadPump(ctx)

	client.Close()
	if _, last := h.registry.Unregister(client.ID()); last {
		h.wentOffline(context.WithoutCancel(ctx), userID)
	}
	conn.Close(websocket.StatusNormalClosure, "")
	h.log.Debug("client disconnected", slog.String("user_id", userID.String()))
}

func (h *Handler) cameOnline(ctx context.Context, userID uuid.UUID) {
	if h.tracker != nil {
		first, err := h.tracker.Join(ctx, userID)
		if err != nil {
			h.log.Warn("tracking presence", slog.Any("error", err))
		} else if !first {
			return
		}
	}
	h.announce(ctx, userID, domain.PresenceOnline)
}

func (h *Handler) wentOffline(ctx context.Context, userID uuid.UUID) {
	if h.tracker != nil {
		last, err := h.tracker.Leave(ctx, userID)
		if err != nil {
			h.log.Warn("tracking presence", slog.Any("error", err))
		} else if !last {
			return
		}
	}
	h.announce(ctx, userID, domain.PresenceOffline)
}

// announce tells the user's friends that the user came online or went
// offline. It is a no-op for users without friends.
func (h *Handler) announce(ctx context.Context, userID uuid.UUID, status string) {
	friends, err := h.friends.FriendIDs(ctx, userID)
	if err != nil {
		h.log.Warn("listing friends for presence", slog.Any("error", err))
		return
	}
	if len(friends) == 0 {
		return
	}
	payload := domain.PresencePayload{UserID: userID, Status: status}
	if err := h.fanout.Publish(ctx, domain.EventPresence, friends, payload); err != nil {
		h.log.Warn("publishing presence", slog.Any("error", err))
	}
}
