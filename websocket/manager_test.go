package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type typingCall struct {
	user, conversation string
	typing             bool
}

type testEnv struct {
	manager *Manager
	server  *httptest.Server
	mu      sync.Mutex
	typed   []typingCall
}

func newTestEnv(t *testing.T) *testEnv {
	env := &testEnv{}
	env.manager = NewManager(func(_ context.Context, user, conversation string, typing bool) error {
		env.mu.Lock()
		defer env.mu.Unlock()
		env.typed = append(env.typed, typingCall{user, conversation, typing})
		return nil
	})
	go env.manager.Start()

	auth := func(token string) (string, error) {
		if _, err := primitive.ObjectIDFromHex(token); err != nil {
			return "", errors.New("bad token")
		}
		return token, nil
	}
	env.server = httptest.NewServer(env.manager.Handler(auth))
	t.Cleanup(func() {
		env.server.Close()
		env.manager.Stop()
	})
	return env
}

func (env *testEnv) dial(t *testing.T, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	frame := readFrame(t, conn)
	require.Equal(t, "connected", frame.Type)
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var f Frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func send(t *testing.T, conn *websocket.Conn, typ string, payload interface{}) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(Frame{Type: typ, Payload: raw}))
}

func TestRejectsMissingOrBadToken(t *testing.T) {
	env := newTestEnv(t)
	base := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/"

	_, resp, err := websocket.DefaultDialer.Dial(base, nil)
	require.Error(t, err)
	assert.Equal(t, 401, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(base+"?token=nope", nil)
	require.Error(t, err)
	assert.Equal(t, 401, resp.StatusCode)
}

func TestPushReachesOnlyTheRecipientRoom(t *testing.T) {
	env := newTestEnv(t)
	alice, bob := primitive.NewObjectID(), primitive.NewObjectID()
	aliceConn := env.dial(t, alice.Hex())
	aliceTab := env.dial(t, alice.Hex())
	bobConn := env.dial(t, bob.Hex())
	require.Equal(t, 3, env.manager.ConnectedClients())

	env.manager.Push(alice, "notification", map[string]string{"message": "hi"})

	for _, conn := range []*websocket.Conn{aliceConn, aliceTab} {
		f := readFrame(t, conn)
		assert.Equal(t, "notification", f.Type)
		assert.JSONEq(t, `{"message":"hi"}`, string(f.Payload))
	}

	// bob only sees his own pong
	send(t, bobConn, "ping", nil)
	assert.Equal(t, "pong", readFrame(t, bobConn).Type)
}

func TestJoinOnlyOwnRoom(t *testing.T) {
	env := newTestEnv(t)
	me := primitive.NewObjectID()
	conn := env.dial(t, me.Hex())

	send(t, conn, "join", map[string]string{"userId": primitive.NewObjectID().Hex()})
	assert.Equal(t, "error", readFrame(t, conn).Type)

	send(t, conn, "join", map[string]string{"userId": me.Hex()})
	f := readFrame(t, conn)
	assert.Equal(t, "joined", f.Type)
	assert.JSONEq(t, `{"room":"`+me.Hex()+`"}`, string(f.Payload))
}

func TestTypingIsRelayed(t *testing.T) {
	env := newTestEnv(t)
	me := primitive.NewObjectID()
	conn := env.dial(t, me.Hex())

	send(t, conn, "typing_start", map[string]string{"conversationId": "c1"})
	send(t, conn, "typing_end", map[string]string{"conversationId": "c1"})
	// the pong is answered after both typing frames were handled
	send(t, conn, "ping", nil)
	require.Equal(t, "pong", readFrame(t, conn).Type)

	env.mu.Lock()
	defer env.mu.Unlock()
	assert.Equal(t, []typingCall{{me.Hex(), "c1", true}, {me.Hex(), "c1", false}}, env.typed)
}

func TestClosedSocketLeavesRoom(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t, primitive.NewObjectID().Hex())
	require.Equal(t, 1, env.manager.ConnectedClients())

	conn.Close()
	assert.Eventually(t, func() bool { return env.manager.ConnectedClients() == 0 }, 3*time.Second, 20*time.Millisecond)
}
