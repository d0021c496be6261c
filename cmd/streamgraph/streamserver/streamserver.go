package streamserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	"github.com/xiaonanln/streamgraph/explorer"
	"github.com/xiaonanln/streamgraph/render"
	"github.com/xiaonanln/streamgraph/streamapi"
	"github.com/xiaonanln/streamgraph/util/logger"
)

var log = logger.NewLogger("streamserver")

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Transport names reported to the explorer.
const (
	TransportHTTP      = "http"
	TransportWebSocket = "ws"
	TransportGRPC      = "grpc"
	TransportSSE       = "sse"
)

// defaultHeartbeatInterval is the interval between SSE heartbeat events
const defaultHeartbeatInterval = 30 * time.Second

// Config holds the configuration for Server
type Config struct {
	HTTPAddr          string
	GRPCAddr          string        // optional; empty disables the gRPC listener
	MsPerSlot         int64         // marker slot duration for rendering
	HeartbeatInterval time.Duration // SSE and WebSocket keepalive, defaults to 30s
}

// Server exposes an Explorer over HTTP (page, SVG, SSE, WebSocket, metrics)
// and gRPC.
type Server struct {
	ex        *explorer.Explorer
	renderer  *render.Renderer
	cfg       Config
	heartbeat time.Duration

	shutdownChan chan struct{}
	shutdownOnce sync.Once
}

// New creates a new Server
func New(ex *explorer.Explorer, cfg Config) *Server {
	heartbeat := cfg.HeartbeatInterval
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeatInterval
	}
	return &Server{
		ex:           ex,
		renderer:     render.NewRenderer(cfg.MsPerSlot),
		cfg:          cfg,
		heartbeat:    heartbeat,
		shutdownChan: make(chan struct{}),
	}
}

// Handler returns the HTTP handler serving the web UI and its endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.handlePage)
	mux.HandleFunc("/svg", s.handleSVG)
	mux.HandleFunc("/state", s.handleState)
	mux.HandleFunc("/connect", s.handleConnect)
	mux.HandleFunc("/disconnect", s.handleDisconnect)
	mux.HandleFunc("/range", s.handleRange)

	// Push-based updates
	mux.HandleFunc("/events/stream", s.handleEventsStream)
	mux.HandleFunc("/ws", s.handleWebSocket)

	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

// RegisterGRPC registers the StreamGraph service on gs.
func (s *Server) RegisterGRPC(gs *grpc.Server) {
	streamapi.RegisterStreamGraphServer(gs, &grpcService{ex: s.ex, shutdown: s.shutdownChan})
}

// Run serves HTTP and gRPC until ctx is done, then shuts both down
// gracefully. Long-lived SSE, WebSocket and WatchState streams are closed
// first so the graceful shutdown does not wait for them.
func (s *Server) Run(ctx context.Context) error {
	httpLis, err := net.Listen("tcp", s.cfg.HTTPAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.HTTPAddr, err)
	}
	var grpcLis net.Listener
	if s.cfg.GRPCAddr != "" {
		grpcLis, err = net.Listen("tcp", s.cfg.GRPCAddr)
		if err != nil {
			httpLis.Close()
			return fmt.Errorf("failed to listen on %s: %w", s.cfg.GRPCAddr, err)
		}
	}
	return s.Serve(ctx, httpLis, grpcLis)
}

// Serve is Run on existing listeners. grpcLis may be nil.
func (s *Server) Serve(ctx context.Context, httpLis, grpcLis net.Listener) error {
	g, ctx := errgroup.WithContext(ctx)

	httpServer := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	log.Infof("HTTP on %s", httpLis.Addr())
	g.Go(func() error {
		if err := httpServer.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		log.Infof("HTTP server stopped")
		return nil
	})

	var grpcServer *grpc.Server
	if grpcLis != nil {
		grpcServer = grpc.NewServer()
		s.RegisterGRPC(grpcServer)
		reflection.Register(grpcServer)
		log.Infof("gRPC on %s", grpcLis.Addr())
		g.Go(func() error {
			if err := grpcServer.Serve(grpcLis); err != nil {
				return fmt.Errorf("grpc server: %w", err)
			}
			log.Infof("gRPC server stopped")
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		s.Shutdown()

		log.Infof("Shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Warnf("HTTP server shutdown error: %v", err)
		}
		if grpcServer != nil {
			log.Infof("Shutting down gRPC server...")
			grpcServer.GracefulStop()
		}
		return nil
	})

	return g.Wait()
}

// Shutdown ends every open push stream. It is safe to call more than once.
func (s *Server) Shutdown() {
	s.shutdownOnce.Do(func() {
		close(s.shutdownChan)
	})
}

// offerLatest puts st into ch, replacing an undelivered older state.
// ch must have capacity 1 and a single sender.
func offerLatest(ch chan *explorer.RenderState, st *explorer.RenderState) {
	for {
		select {
		case ch <- st:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
