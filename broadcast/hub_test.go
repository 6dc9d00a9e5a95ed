package broadcast_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"cmrp/broadcast"
	"cmrp/models"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObserver struct {
	id     string
	fail   bool
	mu     sync.Mutex
	events []broadcast.Event
	closed int
}

func (f *fakeObserver) ID() string { return f.id }

func (f *fakeObserver) Send(ev broadcast.Event) error {
	if f.fail {
		return errors.New("broken pipe")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeObserver) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

func quietLogger() logrus.FieldLogger {
	logger, _ := test.NewNullLogger()
	return logger
}

func TestBroadcastDropsFailingObserver(t *testing.T) {
	hub := broadcast.NewHub(quietLogger())
	good := &fakeObserver{id: "good"}
	bad := &fakeObserver{id: "bad", fail: true}
	hub.Connect(good)
	hub.Connect(bad)
	require.Equal(t, 2, hub.Len())

	ev := broadcast.Event{Type: broadcast.EventNewComplaint, Complaint: &models.Complaint{ID: "c1"}}
	delivered := hub.Broadcast(context.Background(), ev)

	assert.Equal(t, 1, delivered)
	assert.Equal(t, 1, hub.Len())
	require.Len(t, good.events, 1)
	assert.Equal(t, "c1", good.events[0].Complaint.ID)
	assert.Equal(t, 1, bad.closed)
	assert.Equal(t, 0, good.closed)

	// later events only reach the survivor
	hub.Broadcast(context.Background(), ev)
	assert.Len(t, good.events, 2)
}

func TestDisconnectIsIdempotent(t *testing.T) {
	hub := broadcast.NewHub(quietLogger())
	o := &fakeObserver{id: "o"}
	hub.Connect(o)

	hub.Disconnect(o)
	hub.Disconnect(o)

	assert.Equal(t, 0, hub.Len())
	assert.Equal(t, 1, o.closed)
}

func TestEventWireFormat(t *testing.T) {
	ev := broadcast.Event{
		Type:      broadcast.EventNewComplaint,
		Complaint: &models.Complaint{ID: "c9", Status: models.StatusPending},
	}
	data, err := json.Marshal(ev)
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.JSONEq(t, `"new_complaint"`, string(raw["event"]))
	assert.Contains(t, string(raw["complaint"]), `"PENDING"`)
}

func TestWSObserverDeliversJSONFrames(t *testing.T) {
	hub := broadcast.NewHub(quietLogger())
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		o := broadcast.NewWSObserver(conn, quietLogger())
		hub.Connect(o)
		o.Start()
		o.KeepAlive()
		hub.Disconnect(o)
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer client.Close()

	require.Eventually(t, func() bool { return hub.Len() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Broadcast(context.Background(), broadcast.Event{
		Type:      broadcast.EventNewComplaint,
		Complaint: &models.Complaint{ID: "c1", Title: "Pothole", Status: models.StatusPending},
	})

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	msgType, data, err := client.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, msgType)

	var got broadcast.Event
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, broadcast.EventNewComplaint, got.Type)
	assert.Equal(t, "Pothole", got.Complaint.Title)
	assert.Equal(t, models.StatusPending, got.Complaint.Status)

	client.Close()
	assert.Eventually(t, func() bool { return hub.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestRedisRelayFallsBackToLocalHub(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	hub := broadcast.NewHub(quietLogger())
	o := &fakeObserver{id: "o"}
	hub.Connect(o)

	relay := broadcast.NewRedisRelay(rdb, hub, quietLogger())
	err := relay.Publish(context.Background(), broadcast.Event{Type: broadcast.EventNewComplaint, Complaint: &models.Complaint{ID: "c1"}})

	require.NoError(t, err)
	assert.Len(t, o.events, 1)
}
