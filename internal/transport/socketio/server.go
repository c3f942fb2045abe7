// Package socketio pushes now-playing updates to connected displays.
package socketio

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zishang520/socket.io/servers/socket/v3"
	"github.com/zishang520/socket.io/v3/pkg/types"

	"github.com/lakefm/airlog/internal/bus"
	"github.com/lakefm/airlog/internal/poller"
)

// NowPlayingSource is the poller surface the server needs.
type NowPlayingSource interface {
	Snapshot() poller.Snapshot
	RefreshNow()
}

// Server handles Socket.io connections and events.
type Server struct {
	io      *socket.Server
	source  NowPlayingSource
	events  *bus.Bus[poller.Snapshot]
	limiter *ConnectionLimiter

	mu      sync.RWMutex
	clients map[string]*socket.Socket
}

// NewServer creates a new Socket.io server over the given now-playing source.
func NewServer(source NowPlayingSource, events *bus.Bus[poller.Snapshot], maxExternal int) (*Server, error) {
	opts := socket.DefaultServerOptions()
	opts.SetPingTimeout(20 * time.Second)
	opts.SetPingInterval(25 * time.Second)
	opts.SetCors(&types.Cors{
		Origin:      "*",
		Credentials: true,
	})

	server := socket.NewServer(nil, opts)

	s := &Server{
		io:      server,
		source:  source,
		events:  events,
		limiter: NewConnectionLimiter(maxExternal),
		clients: make(map[string]*socket.Socket),
	}

	s.setupHandlers()

	return s, nil
}

// setupHandlers registers all Socket.io event handlers.
func (s *Server) setupHandlers() {
	s.io.On("connection", func(clients ...any) {
		client := clients[0].(*socket.Socket)
		clientID := string(client.Id())
		remoteIP := ""
		if h := client.Handshake(); h != nil {
			remoteIP = h.Address
		}

		_, evicted := s.limiter.TryAdd(clientID, remoteIP)
		if evicted != "" {
			s.disconnectClient(evicted)
		}

		log.Info().Str("id", clientID).Str("ip", remoteIP).Msg("Display connected")

		s.mu.Lock()
		s.clients[clientID] = client
		s.mu.Unlock()

		// Send initial state after small delay
		go func() {
			time.Sleep(100 * time.Millisecond)
			client.Emit("nowplaying", s.source.Snapshot())
		}()

		client.On("disconnect", func(args ...any) {
			reason := ""
			if len(args) > 0 {
				if r, ok := args[0].(string); ok {
					reason = r
				}
			}
			log.Info().Str("id", clientID).Str("reason", reason).Msg("Display disconnected")

			s.limiter.Remove(clientID)
			s.mu.Lock()
			delete(s.clients, clientID)
			s.mu.Unlock()
		})

		client.On("getNowPlaying", func(args ...any) {
			log.Debug().Str("id", clientID).Msg("getNowPlaying")
			client.Emit("nowplaying", s.source.Snapshot())
		})

		client.On("refreshNow", func(args ...any) {
			log.Debug().Str("id", clientID).Msg("refreshNow")
			s.source.RefreshNow()
		})
	})
}

// Run forwards poller snapshots to all connected displays until ctx is
// cancelled.
func (s *Server) Run(ctx context.Context) {
	ch, cancel := s.events.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-ch:
			if !ok {
				return
			}
			s.Broadcast(snap)
		}
	}
}

// Broadcast pushes a snapshot to every connected display.
func (s *Server) Broadcast(snap poller.Snapshot) {
	s.io.Emit("nowplaying", snap)
}

func (s *Server) disconnectClient(clientID string) {
	s.mu.RLock()
	client := s.clients[clientID]
	s.mu.RUnlock()

	if client != nil {
		log.Info().Str("id", clientID).Msg("Evicting oldest external display")
		client.Disconnect(true)
	}
}

// ClientCount returns the number of connected displays.
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// ServeHTTP implements http.Handler for the Socket.io server.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.io.ServeHandler(nil).ServeHTTP(w, r)
}

// Close closes the Socket.io server.
func (s *Server) Close() error {
	s.io.Close(nil)
	return nil
}
