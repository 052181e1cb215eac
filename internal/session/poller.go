package session

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Run performs an initial refresh, then refreshes on every tick of the poll
// interval while the session is authenticated. It blocks until ctx is done.
func (s *Session) Run(ctx context.Context) error {
	if err := s.Refresh(ctx, true); err != nil {
		s.logger.Warn("initial refresh failed", zap.Error(err))
	}

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	s.logger.Info("starting refresh loop", zap.Duration("poll_interval", s.pollInterval))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("context done, stopping refresh loop")
			return ctx.Err()
		case <-ticker.C:
			if !s.State().IsAuthenticated() {
				continue
			}
			if err := s.Refresh(ctx, false); err != nil {
				s.logger.Warn("background refresh failed", zap.Error(err))
			}
		}
	}
}

// Start runs the refresh loop in the background until Stop is called or ctx is done.
// Calling Start on a running session is a no-op.
func (s *Session) Start(ctx context.Context) {
	s.loopMu.Lock()
	defer s.loopMu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel, s.done = cancel, done

	go func() {
		defer close(done)
		_ = s.Run(ctx)
	}()
}

// Stop cancels the refresh loop and waits for it to exit.
func (s *Session) Stop() {
	s.loopMu.Lock()
	defer s.loopMu.Unlock()
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel, s.done = nil, nil
}
