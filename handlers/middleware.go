package handlers

import (
	"net/http"
	"time"

	"github.com/flow-hydraulics/token-wallet-ledger/handlers/middleware"
	gorilla "github.com/gorilla/handlers"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

func UseCors(h http.Handler) http.Handler {
	return gorilla.CORS(
		gorilla.AllowedOrigins([]string{"*"}),
		gorilla.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions}),
		gorilla.AllowedHeaders([]string{"Content-Type", IdempotencyKeyHeader}),
	)(h)
}

func UseLogging(h http.Handler) http.Handler {
	return middleware.LoggingHandler(log.StandardLogger(), h)
}

func UseCompress(h http.Handler) http.Handler {
	return gorilla.CompressHandler(h)
}

func UseJson(h http.Handler) http.Handler {
	// Only PUT, POST, and PATCH requests are considered.
	return gorilla.ContentTypeHandler(h, "application/json")
}

// UseTimeout bounds the time h may take to respond. WebSocket upgrades are
// exempt as the connection has to be hijacked and outlives the request.
func UseTimeout(h http.Handler, timeout time.Duration) http.Handler {
	th := http.TimeoutHandler(h, timeout, "request timed out")
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		if websocket.IsWebSocketUpgrade(r) {
			h.ServeHTTP(rw, r)
			return
		}
		th.ServeHTTP(rw, r)
	})
}
