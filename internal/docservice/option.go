package docservice

import (
	"log/slog"
	"time"
)

// Option configures a Service.
type Option func(*Service)

// WithPublisher receives document and formatting events.
func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.pub = p
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMaxDocumentBytes limits the size of stored documents. Zero disables
// the limit.
func WithMaxDocumentBytes(n int64) Option {
	return func(s *Service) { s.maxBytes = n }
}

// WithIdleTimeout sets how long an unused editing session stays open.
func WithIdleTimeout(d time.Duration) Option {
	return func(s *Service) { s.idle = d }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}
