package server

import (
	"context"
	"errors"
	"time"

	"github.com/sourcegraph/conc/pool"
)

// Shutdowner is a service that can shut down, like [http.Server].
type Shutdowner interface {
	Shutdown(context.Context) error
}

// ShutdownHandler shuts down services once a context is cancelled.
type ShutdownHandler struct {
	waitPeriod time.Duration
	services   []Shutdowner
}

// NewShutdownHandler creates a [ShutdownHandler] giving each service
// gracefulShutdownPeriod to shut down.
func NewShutdownHandler(gracefulShutdownPeriod time.Duration) *ShutdownHandler {
	return &ShutdownHandler{waitPeriod: gracefulShutdownPeriod}
}

// Add adds service to the handler. Must be called before [ShutdownHandler.Wait].
func (s *ShutdownHandler) Add(service Shutdowner) {
	s.services = append(s.services, service)
}

// Wait waits for ctx to be cancelled, then shuts down all services
// concurrently and returns when all of them are done.
func (s *ShutdownHandler) Wait(ctx context.Context) error {
	<-ctx.Done()

	p := pool.NewWithResults[error]()
	for _, service := range s.services {
		p.Go(func() error {
			ctx, cancel := context.WithTimeout(context.Background(), s.waitPeriod)
			defer cancel()
			return service.Shutdown(ctx)
		})
	}
	return errors.Join(p.Wait()...)
}
