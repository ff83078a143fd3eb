package proxy

import (
	"context"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	cperrors "github.com/boringdata/boring-ui-controlplane/infrastructure/errors"
	cphttputil "github.com/boringdata/boring-ui-controlplane/infrastructure/httputil"
	"github.com/boringdata/boring-ui-controlplane/infrastructure/logging"
	"github.com/boringdata/boring-ui-controlplane/infrastructure/security"
)

// RuntimeResolver resolves the upstream base URL a workspace's runtime is
// reachable at.
type RuntimeResolver func(ctx context.Context, workspaceID string) (baseURL string, err error)

// Handler proxies browser requests (plain HTTP, SSE, and WebSocket) to a
// workspace's runtime, sanitizing headers in both directions and
// accounting every stream against the StreamRegistry.
type Handler struct {
	resolver RuntimeResolver
	registry *StreamRegistry
	headerConfig security.ProxyHeaderConfig
	upgrader websocket.Upgrader
}

// NewHandler builds a proxy Handler.
func NewHandler(resolver RuntimeResolver, registry *StreamRegistry, headerConfig security.ProxyHeaderConfig) *Handler {
	return &Handler{
		resolver:     resolver,
		registry:     registry,
		headerConfig: headerConfig,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP dispatches to the WebSocket, SSE, or plain-proxy path based on
// the inbound request.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	workspaceID := logging.WorkspaceID(r.Context())
	baseURL, err := h.resolver(r.Context(), workspaceID)
	if err != nil {
		cphttputil.WriteError(w, cperrors.UpstreamUnavailable(err))
		return
	}

	if websocket.IsWebSocketUpgrade(r) {
		h.proxyWebSocket(w, r, workspaceID, baseURL)
		return
	}
	h.proxyHTTP(w, r, workspaceID, baseURL)
}

func (h *Handler) proxyHTTP(w http.ResponseWriter, r *http.Request, workspaceID, baseURL string) {
	target, err := url.Parse(baseURL)
	if err != nil {
		cphttputil.WriteError(w, cperrors.UpstreamUnavailable(err))
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	session, err := h.registry.Register(workspaceID, cancel)
	if err != nil {
		cancel()
		cphttputil.WriteError(w, err)
		return
	}
	defer h.registry.CloseFromUpstream(session)

	rp := httputil.NewSingleHostReverseProxy(target)
	originalDirector := rp.Director
	rp.Director = func(req *http.Request) {
		originalDirector(req)
		req.Header = security.SanitizeProxyHeaders(req.Header, h.headerConfig)
	}
	rp.ModifyResponse = func(resp *http.Response) error {
		resp.Header = security.RedactResponseHeaders(resp.Header)
		h.registry.MarkActive(session)
		return nil
	}
	rp.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		cphttputil.WriteError(w, cperrors.UpstreamUnavailable(err))
	}

	r = r.WithContext(ctx)
	if isSSE(r) {
		h.proxySSE(w, r, rp, session)
		return
	}

	rp.ServeHTTP(w, r)
}

func isSSE(r *http.Request) bool {
	return strings.Contains(strings.ToLower(r.Header.Get("Accept")), "text/event-stream")
}

// proxySSE wraps the reverse proxy to flush after every write, and watches
// the client's request context so an abrupt disconnect cancels the
// upstream request (spec.md §4.9).
func (h *Handler) proxySSE(w http.ResponseWriter, r *http.Request, rp *httputil.ReverseProxy, session *StreamSession) {
	flusher, ok := w.(http.Flusher)
	if ok {
		rp.FlushInterval = 100 * time.Millisecond
		_ = flusher
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		rp.ServeHTTP(w, r)
	}()

	select {
	case <-r.Context().Done():
		h.registry.CloseFromClient(session)
	case <-done:
	}
}

// proxyWebSocket bridges a client WebSocket connection to the workspace
// runtime's WebSocket endpoint, proxying frames in both directions.
func (h *Handler) proxyWebSocket(w http.ResponseWriter, r *http.Request, workspaceID, baseURL string) {
	target, err := url.Parse(baseURL)
	if err != nil {
		cphttputil.WriteError(w, cperrors.UpstreamUnavailable(err))
		return
	}
	wsURL := *target
	wsURL.Scheme = wsScheme(target.Scheme)
	wsURL.Path = r.URL.Path
	wsURL.RawQuery = r.URL.RawQuery

	upstreamHeaders := security.SanitizeProxyHeaders(r.Header, h.headerConfig)

	ctx, cancel := context.WithCancel(r.Context())
	session, err := h.registry.Register(workspaceID, cancel)
	if err != nil {
		cancel()
		cphttputil.WriteError(w, err)
		return
	}
	defer h.registry.CloseFromUpstream(session)

	upstreamConn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL.String(), upstreamHeaders)
	if err != nil {
		cphttputil.WriteError(w, cperrors.UpstreamUnavailable(err))
		return
	}
	defer upstreamConn.Close()

	clientConn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer clientConn.Close()
	h.registry.MarkActive(session)

	errc := make(chan error, 2)
	go pipeWS(clientConn, upstreamConn, errc)
	go pipeWS(upstreamConn, clientConn, errc)

	select {
	case <-ctx.Done():
		h.registry.CloseFromClient(session)
	case <-errc:
	}
}

func pipeWS(dst, src *websocket.Conn, errc chan<- error) {
	for {
		msgType, data, err := src.ReadMessage()
		if err != nil {
			errc <- err
			return
		}
		if err := dst.WriteMessage(msgType, data); err != nil {
			errc <- err
			return
		}
	}
}

func wsScheme(httpScheme string) string {
	if httpScheme == "https" {
		return "wss"
	}
	return "ws"
}
