package relay

import (
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type recordingDeliverer struct {
	targets [][]uuid.UUID
	frames  [][]byte
}

func (d *recordingDeliverer) Deliver(targets []uuid.UUID, frame []byte) int {
	d.targets = append(d.targets, targets)
	d.frames = append(d.frames, frame)
	return len(targets)
}

func newRelay(t *testing.T) *Redis {
	t.Helper()
	// The client is never dialed by these tests.
	client := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, "ourchat:test", slog.Default())
}

func Test_Handle_Delivers_Remote_Frames(t *testing.T) {
	req := require.New(t)
	r := newRelay(t)
	d := &recordingDeliverer{}

	// Given a frame published by another node
	target := uuid.New()
	frame := []byte(`{"type":"presence","payload":{},"ts":1}`)
	payload, err := json.Marshal(envelope{Origin: uuid.New(), Targets: []uuid.UUID{target}, Frame: frame})
	req.NoError(err)

	// When
	r.handle(payload, d)

	// Then
	req.Len(d.frames, 1)
	req.JSONEq(string(frame), string(d.frames[0]))
	req.Equal([]uuid.UUID{target}, d.targets[0])
}

func Test_Handle_Skips_Own_Frames(t *testing.T) {
	req := require.New(t)
	r := newRelay(t)
	d := &recordingDeliverer{}

	payload, err := json.Marshal(envelope{Origin: r.origin, Targets: []uuid.UUID{uuid.New()}, Frame: []byte(`{}`)})
	req.NoError(err)

	r.handle(payload, d)

	req.Empty(d.frames)
}

func Test_Handle_Drops_Malformed(t *testing.T) {
	r := newRelay(t)
	d := &recordingDeliverer{}

	r.handle([]byte("not json"), d)

	require.Empty(t, d.frames)
}

func Test_Config_Validate(t *testing.T) {
	req := require.New(t)
	req.Error((&Config{Channel: "c"}).Validate())
	req.Error((&Config{Addr: "localhost:6379"}).Validate())
	req.NoError((&Config{Addr: "localhost:6379", Channel: "c"}).Validate())
}

func Test_Presence_Key_Is_Scoped_To_Channel(t *testing.T) {
	req := require.New(t)
	r := newRelay(t)
	id := uuid.New()

	req.Equal("ourchat:test:presence:"+id.String(), r.presenceKey(id))
}
