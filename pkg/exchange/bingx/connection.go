package bingx

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"
)

var ErrConnectionClosed = errors.New("websocket connection closed")

var (
	pingMessage = []byte("Ping")
	pongMessage = []byte("Pong")
	gzipMagic   = []byte{0x1f, 0x8b}
)

// connection pumps a websocket in two goroutines. Decoded text messages are queued on msgQueue,
// heartbeats are answered in place.
type connection struct {
	logger *zap.Logger
	conn   *websocket.Conn

	ctx       context.Context
	ctxCancel context.CancelFunc

	writeChan chan []byte
	msgQueue  chan []byte

	errOnce sync.Once
	err     error
}

func newConnection(logger *zap.Logger, conn *websocket.Conn) *connection {
	ctx, cancel := context.WithCancel(context.Background())

	return &connection{
		logger:    logger,
		conn:      conn,
		ctx:       ctx,
		ctxCancel: cancel,
		writeChan: make(chan []byte, 16),
		msgQueue:  make(chan []byte, 1024),
	}
}

func (c *connection) start() {
	go c.read()
	go c.write()
}

func (c *connection) stop() {
	c.fail(ErrConnectionClosed)
	_ = c.conn.Close()
}

func (c *connection) send(msg []byte) error {
	select {
	case c.writeChan <- msg:
		return nil
	case <-c.ctx.Done():
		return c.cause()
	}
}

// messages is closed once the read loop exits.
func (c *connection) messages() <-chan []byte {
	return c.msgQueue
}

func (c *connection) cause() error {
	<-c.ctx.Done()
	return c.err
}

func (c *connection) fail(err error) {
	c.errOnce.Do(func() {
		c.err = err
		c.ctxCancel()
	})
}

func (c *connection) read() {
	defer close(c.msgQueue)

	for {
		msgType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Debug("websocket closed", zap.Error(err))
			} else {
				c.logger.Warn("cannot read data", zap.Error(err))
			}
			c.fail(errors.Join(ErrConnectionClosed, err))
			return
		}

		if msgType == websocket.BinaryMessage {
			decoded, err := decompress(message)
			if err != nil {
				c.logger.Warn("unable to decompress message", zap.Error(err))
				continue
			}
			message = decoded
		}

		if bytes.Equal(bytes.TrimSpace(message), pingMessage) {
			if err := c.send(pongMessage); err != nil {
				return
			}
			continue
		}

		select {
		case c.msgQueue <- message:
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *connection) write() {
	for {
		select {
		case <-c.ctx.Done():
			return
		case msg := <-c.writeChan:
			_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.logger.Warn("failed to write to connection", zap.Error(err))
				c.fail(errors.Join(ErrConnectionClosed, err))
				return
			}
		}
	}
}

// decompress inflates gzip frames and passes anything else through.
func decompress(message []byte) ([]byte, error) {
	if !bytes.HasPrefix(message, gzipMagic) {
		return message, nil
	}
	r, err := gzip.NewReader(bytes.NewReader(message))
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()
	return io.ReadAll(r)
}
