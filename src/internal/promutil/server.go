package promutil

import (
	"context"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/crs4/hadoop-galaxy/src/internal/errors"
	"github.com/crs4/hadoop-galaxy/src/internal/log"
)

// Handler serves the default registry on /metrics.
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// ListenAndServe serves Handler on l until ctx is cancelled; it then gracefully shuts down the
// server, returning once all requests have been handled.
func ListenAndServe(ctx context.Context, l net.Listener) error {
	var (
		srv = http.Server{
			Handler:     Handler(),
			BaseContext: func(net.Listener) context.Context { return ctx },
		}
		errCh = make(chan error, 1)
	)
	go func() {
		errCh <- srv.Serve(l)
	}()
	select {
	case <-ctx.Done():
		log.Debug(ctx, "terminating metrics server due to cancelled context")
		return errors.EnsureStack(srv.Shutdown(context.Background()))
	case err := <-errCh:
		return errors.EnsureStack(err)
	}
}
