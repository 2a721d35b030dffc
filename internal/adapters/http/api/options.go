package api

// Default refresh rate limit.
const (
	defaultRefreshPerSecond = 0.2
	defaultRefreshBurst     = 2
)

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithAllowedOrigins sets the CORS allow list.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) {
		if len(origins) > 0 {
			s.allowedOrigins = origins
		}
	}
}

// WithRefreshRateLimit bounds POST /v1/refresh. A non-positive rate
// disables the limit.
func WithRefreshRateLimit(perSecond float64, burst int) Option {
	return func(s *Server) {
		s.refreshLimit = perSecond
		s.refreshBurst = burst
	}
}
