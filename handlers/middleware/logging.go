package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/sirupsen/logrus"
)

type responseSnooper struct {
	w      http.ResponseWriter
	status int
	size   int
	start  time.Time
}

func (l *responseSnooper) Write(b []byte) (int, error) {
	size, err := l.w.Write(b)
	l.size += size
	return size, err
}

func (l *responseSnooper) WriteHeader(s int) {
	l.w.WriteHeader(s)
	l.status = s
}

func makeSnooper(w http.ResponseWriter) (*responseSnooper, http.ResponseWriter) {
	snooper := &responseSnooper{
		w:      w,
		status: http.StatusOK,
		start:  time.Now(),
	}

	hooks := httpsnoop.Hooks{
		Write: func(httpsnoop.WriteFunc) httpsnoop.WriteFunc {
			return snooper.Write
		},
		WriteHeader: func(httpsnoop.WriteHeaderFunc) httpsnoop.WriteHeaderFunc {
			return snooper.WriteHeader
		},
	}

	return snooper, httpsnoop.Wrap(w, hooks)
}

// LoggingHandler logs every request handled by h. Health probes are logged
// at debug level, server errors at error level.
func LoggingHandler(logger logrus.FieldLogger, h http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		snooper, rw := makeSnooper(rw)

		h.ServeHTTP(rw, r)

		entry := logger.WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"remote":     r.RemoteAddr,
			"user-agent": r.UserAgent(),
			"status":     snooper.status,
			"size":       snooper.size,
			"duration":   float64(time.Since(snooper.start).Microseconds()) / float64(1000),
		})

		switch {
		case snooper.status >= http.StatusInternalServerError:
			entry.Error("HTTP request")
		case strings.Contains(r.URL.Path, "/health/"):
			entry.Debug("HTTP request")
		default:
			entry.Info("HTTP request")
		}
	})
}
