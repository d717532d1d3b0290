package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/f1grid/livetiming-ingest-go/log"
	"github.com/f1grid/livetiming-ingest-go/pkg/model"
	"github.com/f1grid/livetiming-ingest-go/pkg/utils/broadcast"
)

// sourceBuffer absorbs short consumer stalls; when it is full the
// record is dropped, ingestion is never held back by publishing.
const sourceBuffer = 64

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type (
	// Server pushes every published record to all connected websocket
	// consumers as one JSON message of the shape [topic, data].
	Server struct {
		addr   string
		source chan []byte
		bcast  broadcast.BroadcastServer[[]byte]
		srv    *http.Server
		l      *log.Logger
	}
	Option func(*Server)
)

func WithLogger(l *log.Logger) Option {
	return func(s *Server) { s.l = l }
}

func NewServer(addr string, opts ...Option) *Server {
	ret := &Server{
		addr:   addr,
		source: make(chan []byte, sourceBuffer),
		l:      log.Default().Named("publish.ws"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	ret.bcast = broadcast.NewBroadcastServer("publish.ws", ret.source)
	return ret
}

// Start serves the consumer endpoint until the context is canceled.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleConsumer)
	s.srv = &http.Server{
		Addr:              s.addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		//nolint:errcheck // best effort on teardown
		s.srv.Shutdown(shutdownCtx)
	}()
	s.l.Info("consumer endpoint listening", log.String("addr", s.addr))
	if err := s.srv.ListenAndServe(); err != nil &&
		!errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Publish(topic model.PublishTopic, data any) {
	payload, err := json.Marshal([2]any{topic, data})
	if err != nil {
		s.l.Warn("could not marshal publish record", log.ErrorField(err))
		return
	}
	select {
	case s.source <- payload:
	default:
		s.l.Warn("publish buffer full, dropping record",
			log.String("topic", string(topic)))
	}
}

func (s *Server) Close() {
	s.bcast.Close()
	if s.srv != nil {
		s.srv.Close()
	}
}

//nolint:funlen // connection lifecycle reads best in one piece
func (s *Server) handleConsumer(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.l.Warn("upgrade failed", log.ErrorField(err))
		return
	}
	defer conn.Close()

	if err := conn.WriteJSON(map[string]string{"status": "connected"}); err != nil {
		return
	}
	sub := s.bcast.Subscribe()
	defer s.bcast.CancelSubscription(sub)
	s.l.Debug("consumer connected", log.String("remote", r.RemoteAddr))

	// reads are drained so the close handshake is observed
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case msg, ok := <-sub:
			if !ok {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				s.l.Debug("consumer gone", log.String("remote", r.RemoteAddr))
				return
			}
		case <-gone:
			return
		}
	}
}
