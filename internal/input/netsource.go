package input

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// tcpSource accepts stream clients one at a time and republishes whole
// frames. A client that disconnects mid-frame loses that frame only; the
// next client picks up at a clean boundary, so the downstream reader
// never sees a splice.
type tcpSource struct {
	ln        net.Listener
	frameSize int

	mu     sync.Mutex
	conn   net.Conn
	closed bool

	rest []byte
}

func listenTCP(addr string, frameSize int) (*tcpSource, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %q: %w", addr, err)
	}
	return &tcpSource{ln: ln, frameSize: frameSize}, nil
}

// Addr is the bound listener address, for ":0" configs.
func (s *tcpSource) Addr() net.Addr { return s.ln.Addr() }

func (s *tcpSource) Read(p []byte) (int, error) {
	if len(s.rest) == 0 {
		if err := s.fill(); err != nil {
			return 0, err
		}
	}
	n := copy(p, s.rest)
	s.rest = s.rest[n:]
	return n, nil
}

func (s *tcpSource) fill() error {
	for {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return net.ErrClosed
		}
		conn := s.conn
		s.mu.Unlock()

		if conn == nil {
			c, err := s.ln.Accept()
			if err != nil {
				return err
			}
			s.mu.Lock()
			if s.closed {
				s.mu.Unlock()
				c.Close()
				return net.ErrClosed
			}
			s.conn = c
			s.mu.Unlock()
			conn = c
			log.Info().Str("peer", c.RemoteAddr().String()).Str("source", s.Name()).Msg("input client connected")
		}

		frame := make([]byte, s.frameSize)
		n, err := io.ReadFull(conn, frame)
		if err == nil {
			s.rest = frame
			return nil
		}
		if n > 0 && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
			log.Warn().Err(err).Str("source", s.Name()).Msg("input client read failed")
		}
		if n > 0 && (errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF)) {
			log.Warn().Int("bytes", n).Str("source", s.Name()).Msg("dropping partial frame from disconnected client")
		}
		conn.Close()
		s.mu.Lock()
		s.conn = nil
		s.mu.Unlock()
	}
}

func (s *tcpSource) Close() error {
	s.mu.Lock()
	s.closed = true
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
	return s.ln.Close()
}

func (s *tcpSource) Name() string { return "tcp://" + s.ln.Addr().String() }

// wsSource serves a websocket endpoint and treats every binary message as
// one frame. Messages of any other length are dropped so a dying producer
// can never splice half a frame into the stream. One producer holds the
// stream at a time; extra producers get a conflict response until the
// first goes away.
type wsSource struct {
	srv       *http.Server
	ln        net.Listener
	frameSize int
	msgs      chan []byte
	done      chan struct{}

	mu     sync.Mutex
	busy   bool
	closed bool

	rest []byte
}

func listenWS(addr string, frameSize int) (*wsSource, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %q: %w", addr, err)
	}
	s := &wsSource{
		ln:        ln,
		frameSize: frameSize,
		msgs:      make(chan []byte, 1),
		done:      make(chan struct{}),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handle)
	s.srv = &http.Server{
		Handler:     mux,
		ReadTimeout: 5 * time.Second,
	}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("source", s.Name()).Msg("websocket input server failed")
		}
	}()
	return s, nil
}

// Addr is the bound listener address, for ":0" configs.
func (s *wsSource) Addr() net.Addr { return s.ln.Addr() }

func (s *wsSource) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		http.Error(w, "stream already has a producer", http.StatusConflict)
		return
	}
	s.busy = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.busy = false
		s.mu.Unlock()
	}()

	up := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	log.Info().Str("peer", conn.RemoteAddr().String()).Str("source", s.Name()).Msg("input producer connected")

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if kind != websocket.BinaryMessage {
			continue
		}
		if len(data) != s.frameSize {
			log.Warn().Int("bytes", len(data)).Int("want", s.frameSize).Str("source", s.Name()).Msg("dropping odd-sized frame message")
			continue
		}
		select {
		case s.msgs <- data:
		case <-s.done:
			return
		}
	}
}

func (s *wsSource) Read(p []byte) (int, error) {
	if len(s.rest) == 0 {
		select {
		case msg := <-s.msgs:
			s.rest = msg
		case <-s.done:
			return 0, net.ErrClosed
		}
	}
	n := copy(p, s.rest)
	s.rest = s.rest[n:]
	return n, nil
}

func (s *wsSource) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	close(s.done)
	return s.srv.Close()
}

func (s *wsSource) Name() string { return "ws://" + s.ln.Addr().String() }
