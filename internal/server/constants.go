// Package server provides the HTTP and WebSocket control surface.
package server

import "time"

// WebSocket inbound budget per connection, sliding window.
const (
	RateLimitMessages = 10
	RateLimitWindow   = time.Second
)
