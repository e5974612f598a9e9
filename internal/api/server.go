package api

import (
	"context"
	"log"
	"net/http"
	"time"

	"light-cycles/internal/render"

	"github.com/go-chi/chi/v5"
)

// Server is the HTTP API server with WebSocket support.
// It combines the HTTP router with WebSocket hub for real-time updates.
type Server struct {
	engine       EngineInterface
	router       *chi.Mux
	wsHub        *WebSocketHub
	rateLimiter  *IPRateLimiter
	inputLimiter *IPRateLimiter
	httpServer   *http.Server
}

// NewServer creates a new API server with default production configuration.
//
// Background workers do NOT start until Start() is called, so the server
// can be constructed in tests and driven through Router().
func NewServer(engine EngineInterface) *Server {
	s := &Server{
		engine:       engine,
		wsHub:        NewWebSocketHub(engine),
		rateLimiter:  NewIPRateLimiter(DefaultRateLimitConfig),
		inputLimiter: NewIPRateLimiter(InputRateLimitConfig),
	}

	s.router = NewRouter(RouterConfig{
		Engine:           engine,
		RateLimiter:      s.rateLimiter,
		InputRateLimiter: s.inputLimiter,
		Frames:           render.NewFrameCache(engine),
	})

	// The hub needs its own instance, so /ws lives outside NewRouter
	s.router.Get("/ws", s.wsHub.HandleWebSocket)

	return s
}

// StartHub starts the websocket hub and its broadcast loop without
// listening. Start calls it.
func (s *Server) StartHub() {
	go s.wsHub.Run()
	s.wsHub.StartBroadcastLoop(BroadcastInterval)
}

// Start begins the HTTP server AND starts background workers.
// It blocks until the server is shut down.
func (s *Server) Start(addr string) error {
	s.StartHub()

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Printf("🌐 API server starting on %s", addr)
	log.Printf("🛰️ Spectators: ws://localhost%s/ws", addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Router returns the HTTP handler for use with httptest.
func (s *Server) Router() http.Handler {
	return s.router
}

// Hub returns the websocket hub.
func (s *Server) Hub() *WebSocketHub {
	return s.wsHub
}

// Shutdown stops accepting requests, then stops background workers.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}
	s.wsHub.Stop()
	s.rateLimiter.Stop()
	s.inputLimiter.Stop()
	return err
}
