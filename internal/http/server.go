package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/originality-backend/internal/platform/logger"
)

type Server struct {
	Engine *gin.Engine
	srv    *http.Server
	log    *logger.Logger
}

func NewServer(cfg RouterConfig) *Server {
	return &Server{Engine: NewRouter(cfg), log: cfg.Log}
}

// Run serves until ctx is cancelled, then drains in-flight requests.
// WriteTimeout stays zero so SSE streams are not cut off.
func (s *Server) Run(ctx context.Context, address string) error {
	s.srv = &http.Server{
		Addr:              address,
		Handler:           s.Engine,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if s.log != nil {
			s.log.Info("HTTP server listening", "addr", address)
		}
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
