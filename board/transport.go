package board

import (
	"context"
	"time"

	"github.com/golang/glog"
	"github.com/gorilla/websocket"
)

const ReceiveBufferSize = 32

type StreamTransportSettings struct {
	WsHandshakeTimeout  time.Duration
	ReconnectMinTimeout time.Duration
	ReconnectMaxTimeout time.Duration
	PingTimeout         time.Duration
	WriteTimeout        time.Duration
	ReadTimeout         time.Duration
	// called on the run goroutine each time a connection is
	// established. `reconnect` is false for the first connection.
	OpenCallback func(reconnect bool)
}

func DefaultStreamTransportSettings() *StreamTransportSettings {
	return &StreamTransportSettings{
		WsHandshakeTimeout:  2 * time.Second,
		ReconnectMinTimeout: 1 * time.Second,
		ReconnectMaxTimeout: 30 * time.Second,
		PingTimeout:         15 * time.Second,
		WriteTimeout:        5 * time.Second,
		ReadTimeout:         60 * time.Second,
	}
}

// StreamTransport owns the one live connection to the board event
// stream. It has no knowledge of frame semantics: every inbound text
// frame is forwarded verbatim, in receipt order, to the single
// receive channel. The connection cycles Connecting -> Open until the
// transport is closed, reconnecting with exponential backoff when the
// remote side goes away. Lifecycle transitions are observable through
// logging only.
type StreamTransport struct {
	ctx    context.Context
	cancel context.CancelFunc

	streamUrl string

	settings *StreamTransportSettings

	receive chan []byte
}

func NewStreamTransportWithDefaults(ctx context.Context, streamUrl string) *StreamTransport {
	return NewStreamTransport(ctx, streamUrl, DefaultStreamTransportSettings())
}

func NewStreamTransport(ctx context.Context, streamUrl string, settings *StreamTransportSettings) *StreamTransport {
	cancelCtx, cancel := context.WithCancel(ctx)
	transport := &StreamTransport{
		ctx:       cancelCtx,
		cancel:    cancel,
		streamUrl: streamUrl,
		settings:  settings,
		receive:   make(chan []byte, ReceiveBufferSize),
	}
	go transport.run()
	return transport
}

// Receive is the single consumer channel of inbound frames.
// It is closed when the transport closes.
func (self *StreamTransport) Receive() <-chan []byte {
	return self.receive
}

func (self *StreamTransport) run() {
	defer func() {
		self.cancel()
		close(self.receive)
	}()

	reconnectTimeout := newReconnect(self.settings.ReconnectMinTimeout, self.settings.ReconnectMaxTimeout)
	first := true

	for {
		dialer := &websocket.Dialer{
			HandshakeTimeout: self.settings.WsHandshakeTimeout,
		}
		ws, _, err := dialer.DialContext(self.ctx, self.streamUrl, nil)
		if err != nil {
			glog.Infof("[t]connect error %s = %s\n", self.streamUrl, err)
			select {
			case <-self.ctx.Done():
				return
			case <-reconnectTimeout.After():
				continue
			}
		}

		glog.V(1).Infof("[t]open %s\n", self.streamUrl)
		if self.settings.OpenCallback != nil {
			self.settings.OpenCallback(!first)
		}
		first = false

		self.handle(ws, reconnectTimeout)
		glog.V(1).Infof("[t]closed %s\n", self.streamUrl)

		select {
		case <-self.ctx.Done():
			return
		case <-reconnectTimeout.After():
		}
	}
}

func (self *StreamTransport) handle(ws *websocket.Conn, reconnectTimeout *reconnect) {
	defer ws.Close()

	handleCtx, handleCancel := context.WithCancel(self.ctx)
	defer handleCancel()

	// unblock the read when the transport closes
	go func() {
		<-handleCtx.Done()
		ws.Close()
	}()

	go func() {
		defer handleCancel()

		for {
			select {
			case <-handleCtx.Done():
				return
			case <-time.After(self.settings.PingTimeout):
				ws.SetWriteDeadline(time.Now().Add(self.settings.WriteTimeout))
				if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
					// a deadline timeout on the websocket cannot be recovered
					glog.Infof("[ts]ping error = %s\n", err)
					return
				}
			}
		}
	}()

	// the connection only counts as healthy once it delivers a frame.
	// a server that accepts and immediately drops keeps backing off.
	received := false

	for {
		select {
		case <-handleCtx.Done():
			return
		default:
		}

		ws.SetReadDeadline(time.Now().Add(self.settings.ReadTimeout))
		messageType, message, err := ws.ReadMessage()
		if err != nil {
			glog.Infof("[tr]<- error = %s\n", err)
			return
		}

		switch messageType {
		case websocket.TextMessage, websocket.BinaryMessage:
			if !received {
				received = true
				reconnectTimeout.Reset()
			}
			select {
			case <-handleCtx.Done():
				return
			case self.receive <- message:
				glog.V(2).Infof("[tr]<-\n")
			case <-time.After(self.settings.ReadTimeout):
				// backpressure from a stalled consumer
				glog.Infof("[tr]drop <-\n")
			}
		default:
			glog.V(2).Infof("[tr]other=%d <-\n", messageType)
		}
	}
}

func (self *StreamTransport) Close() {
	self.cancel()
}
