package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes the collected metrics over HTTP
type Server struct {
	httpServer *http.Server
}

// NewServer returns a metrics server listening on listenAddress
func NewServer(listenAddress string) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              listenAddress,
			Handler:           newRouter(),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

func newRouter() *mux.Router {
	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods("GET")
	return router
}

// Start serves the metrics in the background
func (s *Server) Start() {
	spawn("metrics.Server.Start", func() {
		log.Infof("Metrics server listening on %s", s.httpServer.Addr)
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("Metrics server stopped: %s", err)
		}
	})
}

// Stop gracefully shuts the server down
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
