package host

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/angelmondragon/sagabank-backend/internal/consumers"
	"github.com/angelmondragon/sagabank-backend/pkg/logger"
)

const defaultShutdownTimeout = 15 * time.Second

// PingFunc checks one dependency before the host starts serving.
type PingFunc func(context.Context) error

type ServiceParams struct {
	Logger          *logger.Logger
	Addr            string
	Handler         http.Handler
	Consumers       []*consumers.Runner
	Dependencies    map[string]PingFunc
	ShutdownTimeout time.Duration
}

// Service runs one deployable: an HTTP surface and the consumers it owns.
type Service struct {
	logg            *logger.Logger
	server          *http.Server
	consumers       []*consumers.Runner
	deps            map[string]PingFunc
	shutdownTimeout time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.Handler == nil && len(params.Consumers) == 0 {
		return nil, errors.New("handler or consumers required")
	}
	var server *http.Server
	if params.Handler != nil {
		if params.Addr == "" {
			return nil, errors.New("listen address is required")
		}
		server = &http.Server{
			Addr:              params.Addr,
			Handler:           params.Handler,
			ReadHeaderTimeout: 10 * time.Second,
		}
	}
	timeout := params.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	return &Service{
		logg:            params.Logger,
		server:          server,
		consumers:       params.Consumers,
		deps:            params.Dependencies,
		shutdownTimeout: timeout,
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	names := make([]string, 0, len(s.deps))
	for name := range s.deps {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fn := s.deps[name]
		if fn == nil {
			continue
		}
		if err := fn(ctx); err != nil {
			s.logg.Error(ctx, fmt.Sprintf("%s ping failed", name), err)
			return fmt.Errorf("%s ping failed: %w", name, err)
		}
	}
	return nil
}

// Run blocks until ctx is canceled or a component fails. The HTTP server is
// drained before returning.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	errCh := make(chan error, 2)
	if s.server != nil {
		go func() {
			s.logg.Info(s.logg.WithField(ctx, "addr", s.server.Addr), "http server listening")
			if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("http server: %w", err)
				return
			}
			errCh <- nil
		}()
	}
	if len(s.consumers) > 0 {
		go func() {
			errCh <- consumers.RunAll(ctx, s.consumers...)
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		s.logg.Info(ctx, "host context canceled")
		runErr = ctx.Err()
	case err := <-errCh:
		if err != nil {
			s.logg.Error(ctx, "component stopped unexpectedly", err)
		}
		runErr = err
	}

	if err := s.shutdown(context.WithoutCancel(ctx)); err != nil {
		s.logg.Error(ctx, "http server shutdown failed", err)
	}
	return runErr
}

func (s *Service) shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, s.shutdownTimeout)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}
