package handlers

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/ourchat/internal/auth"
	"github.com/vedran77/ourchat/internal/domain"
	"github.com/vedran77/ourchat/internal/presence"
	"github.com/vedran77/ourchat/internal/repository/badgerstore"
	"github.com/vedran77/ourchat/internal/service"
	"github.com/vedran77/ourchat/internal/transport/http/middleware"
	"github.com/vedran77/ourchat/internal/transport/ws"
)

type api struct {
	t      *testing.T
	server *httptest.Server
}

type account struct {
	id    uuid.UUID
	token string
}

func newAPI(t *testing.T) *api {
	t.Helper()
	log := slog.Default()

	store, err := badgerstore.OpenInMemory(log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	tokens := auth.NewJWT("test-secret", time.Hour)
	fanout := ws.NewFanout(presence.NewRegistry(4), nil, log)
	requests := service.NewRequestService(store, fanout, log)
	chats := service.NewChatService(store, fanout, log)

	mux := http.NewServeMux()
	Register(mux, Handlers{
		Auth:     NewAuthHandler(service.NewAuthService(store.Users(), tokens), tokens.TTL(), log),
		Users:    NewUserHandler(service.NewUserService(store.Users()), log),
		Requests: NewRequestHandler(requests, log),
		Chats:    NewChatHandler(chats, log),
	}, middleware.Auth(tokens))

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return &api{t: t, server: server}
}

// do sends a request and decodes the response into out when it is non-nil.
func (a *api) do(method, path, token string, body any, out any) int {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	r, err := http.NewRequest(method, a.server.URL+path, &buf)
	require.NoError(a.t, err)
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(r)
	require.NoError(a.t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode != http.StatusNoContent {
		require.NoError(a.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (a *api) register(username string) account {
	a.t.Helper()
	var resp service.AuthResponse
	status := a.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": username, "name": username, "password": "Secret123",
	}, &resp)
	require.Equal(a.t, http.StatusCreated, status)
	return account{id: resp.User.ID, token: resp.AccessToken}
}

type errorBody struct {
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
}

func Test_Register_And_Login(t *testing.T) {
	req := require.New(t)
	a := newAPI(t)
	alice := a.register("alice")

	// Duplicate username
	var errResp errorBody
	status := a.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": "alice", "name": "Other", "password": "Secret123",
	}, &errResp)
	req.Equal(http.StatusConflict, status)
	req.Equal("USERNAME_TAKEN", errResp.Error.Code)

	// Weak password
	errResp = errorBody{}
	status = a.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": "bob", "name": "Bob", "password": "short",
	}, &errResp)
	req.Equal(http.StatusBadRequest, status)
	req.Equal("VALIDATION_ERROR", errResp.Error.Code)
	req.Contains(errResp.Error.Fields, "password")

	// Wrong password
	errResp = errorBody{}
	status = a.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": "alice", "password": "Secret124",
	}, &errResp)
	req.Equal(http.StatusUnauthorized, status)
	req.Equal("INVALID_CREDENTIALS", errResp.Error.Code)

	// Login and me
	var login service.AuthResponse
	req.Equal(http.StatusOK, a.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": "alice", "password": "Secret123",
	}, &login))
	var me domain.User
	req.Equal(http.StatusOK, a.do(http.MethodGet, "/api/v1/users/me", login.AccessToken, nil, &me))
	req.Equal(alice.id, me.ID)

	req.Equal(http.StatusUnauthorized, a.do(http.MethodGet, "/api/v1/users/me", "", nil, nil))
}

func Test_Login_Sets_Session_Cookie(t *testing.T) {
	req := require.New(t)
	a := newAPI(t)
	a.register("alice")

	body, _ := json.Marshal(map[string]string{"username": "alice", "password": "Secret123"})
	resp, err := http.Post(a.server.URL+"/api/v1/auth/login", "application/json", bytes.NewReader(body))
	req.NoError(err)
	defer resp.Body.Close()

	var session *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == auth.CookieName {
			session = c
		}
	}
	req.NotNil(session)
	req.True(session.HttpOnly)
	req.NotEmpty(session.Value)
}

func Test_Friend_Request_Flow(t *testing.T) {
	req := require.New(t)
	a := newAPI(t)
	alice, bob := a.register("alice"), a.register("bob")

	// alice finds bob and sends a request
	var found []domain.UserSummary
	req.Equal(http.StatusOK, a.do(http.MethodGet, "/api/v1/users/search?name=bo", alice.token, nil, &found))
	req.Len(found, 1)
	req.Equal(bob.id, found[0].ID)

	var fr domain.FriendRequest
	req.Equal(http.StatusCreated, a.do(http.MethodPost, "/api/v1/requests", alice.token,
		map[string]uuid.UUID{"receiver_id": bob.id}, &fr))

	// bob sending back is a duplicate
	var errResp errorBody
	req.Equal(http.StatusConflict, a.do(http.MethodPost, "/api/v1/requests", bob.token,
		map[string]uuid.UUID{"receiver_id": alice.id}, &errResp))
	req.Equal("DUPLICATE_REQUEST", errResp.Error.Code)

	// bob sees it and alice cannot answer it
	var incoming []domain.FriendRequest
	req.Equal(http.StatusOK, a.do(http.MethodGet, "/api/v1/requests/incoming", bob.token, nil, &incoming))
	req.Len(incoming, 1)
	req.Equal("alice", incoming[0].Sender.Name)

	errResp = errorBody{}
	req.Equal(http.StatusForbidden, a.do(http.MethodPut, "/api/v1/requests/"+fr.ID.String(), alice.token,
		map[string]bool{"accept": true}, &errResp))
	req.Equal("NOT_AUTHORIZED", errResp.Error.Code)

	// bob accepts
	var chat domain.Chat
	req.Equal(http.StatusOK, a.do(http.MethodPut, "/api/v1/requests/"+fr.ID.String(), bob.token,
		map[string]bool{"accept": true}, &chat))
	req.ElementsMatch([]uuid.UUID{alice.id, bob.id}, chat.Members)

	var rel struct {
		State domain.RelationshipState `json:"state"`
	}
	req.Equal(http.StatusOK, a.do(http.MethodGet, "/api/v1/relationships/"+bob.id.String(), alice.token, nil, &rel))
	req.Equal(domain.RelationshipConnected, rel.State)

	var friends []domain.UserSummary
	req.Equal(http.StatusOK, a.do(http.MethodGet, "/api/v1/friends", bob.token, nil, &friends))
	req.Len(friends, 1)
	req.Equal(alice.id, friends[0].ID)

	// A second answer finds nothing
	errResp = errorBody{}
	req.Equal(http.StatusNotFound, a.do(http.MethodPut, "/api/v1/requests/"+fr.ID.String(), bob.token,
		map[string]bool{"accept": true}, &errResp))
	req.Equal("REQUEST_NOT_FOUND", errResp.Error.Code)
}

func Test_Group_Flow(t *testing.T) {
	req := require.New(t)
	a := newAPI(t)
	carol, dave, erin := a.register("carol"), a.register("dave"), a.register("erin")

	// Too small
	var errResp errorBody
	req.Equal(http.StatusBadRequest, a.do(http.MethodPost, "/api/v1/chats", carol.token,
		map[string]any{"name": "duo", "members": []uuid.UUID{dave.id}}, &errResp))
	req.Equal("VALIDATION_ERROR", errResp.Error.Code)

	var g domain.Chat
	req.Equal(http.StatusCreated, a.do(http.MethodPost, "/api/v1/chats", carol.token,
		map[string]any{"name": "trio", "members": []uuid.UUID{dave.id, erin.id}}, &g))
	req.True(g.GroupChat)

	// dave cannot remove, carol can
	errResp = errorBody{}
	path := "/api/v1/chats/" + g.ID.String() + "/members/" + erin.id.String()
	req.Equal(http.StatusForbidden, a.do(http.MethodDelete, path, dave.token, nil, &errResp))
	req.Equal("NOT_AUTHORIZED", errResp.Error.Code)

	var after domain.Chat
	path = "/api/v1/chats/" + g.ID.String() + "/members/" + dave.id.String()
	req.Equal(http.StatusOK, a.do(http.MethodDelete, path, carol.token, nil, &after))
	req.Equal([]uuid.UUID{carol.id, erin.id}, after.Members)

	// dave lost access
	errResp = errorBody{}
	req.Equal(http.StatusForbidden, a.do(http.MethodGet, "/api/v1/chats/"+g.ID.String(), dave.token, nil, &errResp))

	var details domain.ChatDetails
	req.Equal(http.StatusOK, a.do(http.MethodGet, "/api/v1/chats/"+g.ID.String(), erin.token, nil, &details))
	req.Len(details.MemberSummaries, 2)

	// Renaming is the creator's
	var renamed domain.Chat
	req.Equal(http.StatusOK, a.do(http.MethodPatch, "/api/v1/chats/"+g.ID.String(), carol.token,
		map[string]string{"name": "duo"}, &renamed))
	req.Equal("duo", renamed.Name)

	var groups []domain.Chat
	req.Equal(http.StatusOK, a.do(http.MethodGet, "/api/v1/chats/groups", carol.token, nil, &groups))
	req.Len(groups, 1)

	// Both leave; the last one deletes the group
	var left domain.Chat
	req.Equal(http.StatusOK, a.do(http.MethodPost, "/api/v1/chats/"+g.ID.String()+"/leave", carol.token, nil, &left))
	req.True(left.IsCreator(erin.id))
	req.Equal(http.StatusNoContent, a.do(http.MethodPost, "/api/v1/chats/"+g.ID.String()+"/leave", erin.token, nil, nil))

	errResp = errorBody{}
	req.Equal(http.StatusNotFound, a.do(http.MethodGet, "/api/v1/chats/"+g.ID.String(), erin.token, nil, &errResp))
	req.Equal("CHAT_NOT_FOUND", errResp.Error.Code)
}

func Test_Invalid_Path_ID(t *testing.T) {
	req := require.New(t)
	a := newAPI(t)
	alice := a.register("alice")

	var errResp errorBody
	req.Equal(http.StatusBadRequest, a.do(http.MethodGet, "/api/v1/chats/not-a-uuid", alice.token, nil, &errResp))
	req.Equal("INVALID_ID", errResp.Error.Code)
}
