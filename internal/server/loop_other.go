//go:build !linux && !darwin

package server

import (
	"context"
	"errors"
)

var errUnsupported = errors.New("the polling server is only available on linux and darwin")

// Listen is not supported on this platform.
func (s *Server) Listen() error {
	return errUnsupported
}

// Serve is not supported on this platform.
func (s *Server) Serve(ctx context.Context) error {
	return errUnsupported
}

// ListenAndServe is not supported on this platform.
func (s *Server) ListenAndServe(ctx context.Context) error {
	return errUnsupported
}

// Close is a no-op on this platform.
func (s *Server) Close() error {
	return nil
}
