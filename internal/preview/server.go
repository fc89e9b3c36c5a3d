// Package preview serves a rendered page over HTTP and reloads connected
// browsers when the page or its data changes.
package preview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/a-h/templ"

	"github.com/conneroisu/markup/internal/config"
	"github.com/conneroisu/markup/internal/logging"
	"github.com/conneroisu/markup/internal/renderer"
	"github.com/conneroisu/markup/internal/version"
	"github.com/conneroisu/markup/internal/watcher"
	"github.com/conneroisu/markup/pkg/render"
)

// Routes served next to the page.
const (
	WebSocketPath = "/_markup/ws"
	HealthPath    = "/_markup/health"
)

const reloadScript = `<script>(function(){
var proto = location.protocol === "https:" ? "wss://" : "ws://";
function connect(){
  var ws = new WebSocket(proto + location.host + "` + WebSocketPath + `");
  ws.onmessage = function(e){
    var msg = JSON.parse(e.data);
    if (msg.type === "` + MessageReload + `") { location.reload(); }
  };
  ws.onclose = function(){ setTimeout(connect, 1000); };
}
connect();
})();</script>`

// Server renders one page per request.
type Server struct {
	renderer *renderer.Renderer
	page     renderer.Page
	hub      *Hub
	watcher  *watcher.FileWatcher
	logger   logging.Logger
	addr     string

	httpServer   *http.Server
	serverMutex  sync.RWMutex
	shutdownOnce sync.Once
}

// New creates a preview server for page.
func New(cfg *config.Config, r *renderer.Renderer, page renderer.Page, logger logging.Logger) (*Server, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	logger = logger.WithComponent("preview")

	if _, err := page.ResolveKind(); err != nil {
		return nil, err
	}

	fw, err := watcher.NewFileWatcher(cfg.Preview.Debounce, logger)
	if err != nil {
		return nil, err
	}

	return &Server{
		renderer: r,
		page:     page,
		hub:      NewHub(logger),
		watcher:  fw,
		logger:   logger,
		addr:     cfg.Addr(),
	}, nil
}

// Hub returns the live-reload hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns the HTTP routes of the server. The websocket route is
// left unwrapped so the hub can hijack the connection.
func (s *Server) Handler() http.Handler {
	wrap := func(h http.HandlerFunc) http.Handler {
		return Chain(h, RecoveryMiddleware(s.logger), LoggingMiddleware(s.logger), SecurityHeadersMiddleware())
	}

	mux := http.NewServeMux()
	mux.Handle(WebSocketPath, s.hub)
	mux.Handle(HealthPath, wrap(s.handleHealth))
	mux.Handle("/", wrap(s.handlePage))

	return mux
}

// Start watches the page files and serves until ctx is done or the
// listener fails.
func (s *Server) Start(ctx context.Context) error {
	if err := s.watcher.AddFiles(s.page.Path, s.page.DataPath); err != nil {
		return err
	}
	s.watcher.AddHandler(s.handleFileChange)
	if err := s.watcher.Start(ctx); err != nil {
		return err
	}

	s.serverMutex.Lock()
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	server := s.httpServer
	s.serverMutex.Unlock()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "Preview server listening", "url", "http://"+s.addr, "page", s.page.Path)
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		_ = s.Shutdown(context.Background())
		return fmt.Errorf("server error: %w", err)
	}
}

// Shutdown stops the watcher, the hub and the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if err := s.watcher.Stop(); err != nil {
			s.logger.Warn(ctx, err, "Failed to stop file watcher")
		}
		s.hub.Shutdown()

		s.serverMutex.RLock()
		server := s.httpServer
		s.serverMutex.RUnlock()
		if server != nil {
			shutdownErr = server.Shutdown(ctx)
		}
	})

	return shutdownErr
}

func (s *Server) handleFileChange(events []watcher.ChangeEvent) error {
	for _, event := range events {
		s.logger.Info(context.Background(), "File changed", "path", event.Path, "type", event.Type.String())
		s.hub.Broadcast(UpdateMessage{Type: MessageReload, Target: event.Path})
	}

	return nil
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	node, values, err := s.renderer.Load(s.page)
	if err != nil {
		s.errorHandler(r, err).ServeHTTP(w, r)
		return
	}

	page := withReload(render.Component(node, values, s.renderer.Options()...))
	templ.Handler(page, templ.WithErrorHandler(s.errorHandler)).ServeHTTP(w, r)
}

func (s *Server) errorHandler(r *http.Request, err error) http.Handler {
	logging.LogError(s.logger, r.Context(), err, "Render failed", "page", s.page.Path)

	return templ.Handler(withReload(errorPage(err)), templ.WithStatus(http.StatusInternalServerError))
}

func errorPage(err error) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, werr := io.WriteString(w, `<pre class="markup-error">`+templ.EscapeString(err.Error())+`</pre>`)
		return werr
	})
}

// withReload appends the live-reload client after c.
func withReload(c templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := c.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, reloadScript)
		return err
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   version.Get().Short(),
		"page":      s.page.Path,
		"clients":   s.hub.Clients(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(health); err != nil {
		s.logger.Warn(r.Context(), err, "Failed to encode health response")
	}
}
