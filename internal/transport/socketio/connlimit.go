package socketio

import (
	"strings"
	"sync"
)

// ConnectionLimiter caps concurrent external display connections. On-site
// displays connect from localhost and are never limited; when one external
// connection too many arrives, the oldest external one is evicted so the
// newest viewer always wins.
type ConnectionLimiter struct {
	mu          sync.Mutex
	maxExternal int
	order       []string          // external client IDs, oldest first
	remoteIPs   map[string]string // clientID -> remote IP
}

// NewConnectionLimiter creates a limiter allowing up to maxExternal
// concurrent non-localhost connections.
func NewConnectionLimiter(maxExternal int) *ConnectionLimiter {
	return &ConnectionLimiter{
		maxExternal: maxExternal,
		remoteIPs:   make(map[string]string),
	}
}

// TryAdd registers a connection. The connection itself is always admitted;
// evictedID names the oldest external client pushed out to make room, or ""
// when nothing was evicted.
func (cl *ConnectionLimiter) TryAdd(clientID, remoteIP string) (allowed bool, evictedID string) {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if _, known := cl.remoteIPs[clientID]; known {
		return true, ""
	}

	cl.remoteIPs[clientID] = remoteIP

	if isLocalIP(remoteIP) {
		return true, ""
	}

	cl.order = append(cl.order, clientID)
	if len(cl.order) <= cl.maxExternal {
		return true, ""
	}

	evictedID = cl.order[0]
	cl.order = cl.order[1:]
	delete(cl.remoteIPs, evictedID)
	return true, evictedID
}

// Remove unregisters a connection when a client disconnects.
func (cl *ConnectionLimiter) Remove(clientID string) {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	ip, known := cl.remoteIPs[clientID]
	if !known {
		return
	}
	delete(cl.remoteIPs, clientID)

	if isLocalIP(ip) {
		return
	}
	for i, id := range cl.order {
		if id == clientID {
			cl.order = append(cl.order[:i], cl.order[i+1:]...)
			return
		}
	}
}

// isLocalIP reports whether the address is localhost in any of the forms the
// handshake layer produces, including the IPv4-mapped IPv6 one.
func isLocalIP(ip string) bool {
	ip = strings.TrimPrefix(ip, "::ffff:")
	return ip == "127.0.0.1" || ip == "::1"
}
