package handlers

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/travelog-app/server/internal/models"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
	bytesSent  int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	n, err := lrw.ResponseWriter.Write(b)
	lrw.bytesSent += n
	return n, err
}

func LoggingMiddleware(logger *logrus.Logger, db *gorm.DB, trustProxy bool) func(http.Handler) http.Handler {
	logEntry := logger.WithField("component", "http_middleware")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lrw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			defer func() {
				duration := time.Since(start)
				clientIP := ClientIP(r, trustProxy)
				logEntry.WithFields(logrus.Fields{
					"method":     r.Method,
					"path":       r.URL.Path,
					"status":     lrw.statusCode,
					"duration":   duration,
					"client_ip":  clientIP,
					"bytes":      lrw.bytesSent,
					"user_agent": r.UserAgent(),
				}).Info("Request processed")

				go func() {
					ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
					defer cancel()

					entry := models.AccessLog{
						Timestamp: start,
						Method:    r.Method,
						Path:      r.URL.Path,
						Status:    lrw.statusCode,
						Duration:  duration,
						ClientIP:  clientIP,
						UserAgent: r.UserAgent(),
						BytesSent: lrw.bytesSent,
					}

					if err := db.WithContext(ctx).Create(&entry).Error; err != nil {
						logEntry.WithError(err).Warn("Failed to save access log")
					}
				}()
			}()

			next.ServeHTTP(lrw, r)
		})
	}
}

// Throttle is an in-memory per-client request throttle fronting the
// whole API. It bounds request volume cheaply; the durable write window
// on POST /api/logs is enforced separately by the persistent limiter.
type Throttle struct {
	rps        float64
	burst      int
	trustProxy bool

	mu      sync.Mutex
	clients map[string]*throttleClient
}

type throttleClient struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewThrottle(rps float64, burst int, trustProxy bool) *Throttle {
	return &Throttle{
		rps:        rps,
		burst:      burst,
		trustProxy: trustProxy,
		clients:    make(map[string]*throttleClient),
	}
}

func (t *Throttle) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := ClientIP(r, t.trustProxy)

		t.mu.Lock()
		client, exists := t.clients[clientIP]
		if !exists {
			client = &throttleClient{limiter: rate.NewLimiter(rate.Limit(t.rps), t.burst)}
			t.clients[clientIP] = client
		}
		client.lastSeen = time.Now()
		t.mu.Unlock()

		if !client.limiter.Allow() {
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Message: "too many requests"})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// StartJanitor drops throttle state for clients idle longer than three
// minutes.
func (t *Throttle) StartJanitor(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			t.mu.Lock()
			for ip, client := range t.clients {
				if time.Since(client.lastSeen) > 3*time.Minute {
					delete(t.clients, ip)
				}
			}
			t.mu.Unlock()
		case <-ctx.Done():
			return
		}
	}
}

// ClientIP returns the client identity used for throttling and rate
// limiting. Forwarding headers are only honored when the deployment has
// declared a trusted proxy hop; otherwise the socket address is the
// identity, so clients cannot spoof their way past the write window.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
			if idx := strings.Index(ip, ","); idx >= 0 {
				ip = ip[:idx]
			}
			return strings.TrimSpace(ip)
		}
		if ip := r.Header.Get("X-Real-IP"); ip != "" {
			return ip
		}
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
