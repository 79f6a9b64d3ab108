package server

import (
	"time"

	"github.com/dotside-studios/nfc-bridge/buildinfo"
)

// mDNS service discovery
var (
	MDNSServiceType = "_nfc-bridge._tcp"
	MDNSServiceName = buildinfo.DisplayName
	MDNSDomain      = "local."
)

// CORS configuration
const (
	CORSAllowOrigin  = "*"
	CORSAllowMethods = "GET, OPTIONS"
	CORSAllowHeaders = "Content-Type, Authorization"
)

const (
	// DefaultPort is the method channel port used by the bridge.
	DefaultPort = 18080

	// DefaultWriteTimeout bounds a single frame write to the client.
	DefaultWriteTimeout = 5 * time.Second

	// MaxMessageSize caps inbound frames.
	MaxMessageSize = 64 * 1024
)
