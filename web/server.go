package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"garden-link/devices"
	"garden-link/export"
	"garden-link/logging"
	"garden-link/types"
)

// Link is the part of the device link the panel drives.
type Link interface {
	Connect(ctx context.Context) (types.ConnectionState, error)
	Disconnect()
	Send(cmd types.Command) (bool, error)
	Status() types.DeviceStatus
	LatestSample() (types.TelemetrySample, bool)
	LatestCategory() types.Category
	AddObserver(o devices.Observer) (remove func())
}

type Server struct {
	mux      *http.ServeMux
	link     Link
	logs     *logging.Hub
	exporter *export.Exporter
	samples  *WSHub
	log      *zap.SugaredLogger

	connectTimeout time.Duration
	httpServer     *http.Server
	removeObserver func()
}

func New(link Link, logs *logging.Hub, exporter *export.Exporter, log *zap.SugaredLogger, connectTimeout time.Duration) *Server {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if connectTimeout <= 0 {
		connectTimeout = 5 * time.Second
	}
	s := &Server{
		mux:            http.NewServeMux(),
		link:           link,
		logs:           logs,
		exporter:       exporter,
		samples:        NewWSHub(),
		log:            log.Named("web"),
		connectTimeout: connectTimeout,
	}
	s.httpServer = &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.removeObserver = link.AddObserver(s.samples)

	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/status", s.handleStatus)
	s.mux.HandleFunc("/connect", s.handleConnect)
	s.mux.HandleFunc("/disconnect", s.handleDisconnect)
	s.mux.HandleFunc("/command", s.handleCommand)
	s.mux.HandleFunc("/sample", s.handleSample)
	s.mux.HandleFunc("/sample/export", s.handleExport)
	s.mux.HandleFunc("/logs/stream", s.handleLogsStream)
	s.mux.HandleFunc("/ws/samples", s.handleWSSamples)
	return s
}

func (s *Server) Handler() http.Handler { return s.mux }

// ListenAndServe blocks until the server stops. A clean Shutdown returns nil.
func (s *Server) ListenAndServe(addr string) error {
	s.httpServer.Addr = addr
	s.log.Infow("Web server started", "url", "http://localhost"+addr)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.removeObserver != nil {
		s.removeObserver()
		s.removeObserver = nil
	}
	return s.httpServer.Shutdown(ctx)
}
