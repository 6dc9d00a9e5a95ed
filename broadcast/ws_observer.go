package broadcast

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait       = 10 * time.Second
	defaultPongWait = 60 * time.Second
	maxMessageSize  = 512
	sendBuffer      = 64
)

var (
	ErrObserverClosed = errors.New("observer closed")
	ErrObserverSlow   = errors.New("observer send buffer full")
)

// WSObserver streams events to one websocket client as JSON text frames
type WSObserver struct {
	id       string
	conn     *websocket.Conn
	send     chan []byte
	done     chan struct{}
	once     sync.Once
	pongWait time.Duration
	logger   logrus.FieldLogger
}

// NewWSObserver wraps an upgraded connection. Call Start, then KeepAlive.
func NewWSObserver(conn *websocket.Conn, logger logrus.FieldLogger) *WSObserver {
	id := uuid.NewString()
	return &WSObserver{
		id:       id,
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		done:     make(chan struct{}),
		pongWait: defaultPongWait,
		logger:   logger.WithField("observer", id),
	}
}

// ID identifies the observer in the hub
func (o *WSObserver) ID() string { return o.id }

// Send queues the event; a full buffer or closed observer is an error
func (o *WSObserver) Send(ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	select {
	case <-o.done:
		return ErrObserverClosed
	default:
	}

	select {
	case o.send <- data:
		return nil
	default:
		return ErrObserverSlow
	}
}

// Close stops the write loop, which sends a close frame and closes the socket
func (o *WSObserver) Close() error {
	o.once.Do(func() { close(o.done) })
	return nil
}

// Start runs the write loop in its own goroutine
func (o *WSObserver) Start() {
	go o.writePump()
}

// KeepAlive reads and discards client frames until the socket errors, extending the
// read deadline on every frame and pong. It blocks.
func (o *WSObserver) KeepAlive() {
	o.conn.SetReadLimit(maxMessageSize)
	o.conn.SetReadDeadline(time.Now().Add(o.pongWait))
	o.conn.SetPongHandler(func(string) error {
		o.conn.SetReadDeadline(time.Now().Add(o.pongWait))
		return nil
	})

	for {
		if _, _, err := o.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				o.logger.WithError(err).Debug("websocket read failed")
			}
			return
		}
		// Any client frame counts as liveness, not only pongs.
		o.conn.SetReadDeadline(time.Now().Add(o.pongWait))
	}
}

func (o *WSObserver) writePump() {
	ticker := time.NewTicker(o.pongWait * 9 / 10)
	defer func() {
		ticker.Stop()
		o.conn.Close()
	}()

	for {
		select {
		case data := <-o.send:
			o.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := o.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				o.Close()
				return
			}

		case <-ticker.C:
			o.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := o.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				o.Close()
				return
			}

		case <-o.done:
			o.conn.SetWriteDeadline(time.Now().Add(writeWait))
			o.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
