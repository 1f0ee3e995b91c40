// Package timeouts defines shared timeout constants used across services.
package timeouts

import "time"

// SocialRequest caps one outbound call to a social platform API.
const SocialRequest = 10 * time.Second

// TokenRefresh caps one OAuth refresh-token exchange.
const TokenRefresh = 10 * time.Second

// ReadHeader limits how long an HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long servers wait for in-flight requests during
// graceful shutdown.
const Shutdown = 5 * time.Second
