package httpapi

import (
	"log"
	"net/http"
	"strconv"
	"time"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(p []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(p)
	r.bytes += n
	return n, err
}

func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(recorder, r)
		if recorder.status == 0 {
			recorder.status = http.StatusOK
		}
		log.Printf("%s %s %d %dB %s", r.Method, r.URL.Path, recorder.status, recorder.bytes, time.Since(start))
	})
}

// APIRateLimit caps general traffic per client IP.
func (s *Server) APIRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.APILimiter.Allow(clientIP(r)) {
			WriteError(w, http.StatusTooManyRequests, "Too many requests from this IP, please try again later")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// AdminLoginRateLimit applies the stricter fixed-window cap keyed by
// IP plus submitted email.
func (s *Server) AdminLoginRateLimit(key string, w http.ResponseWriter) bool {
	allowed, retryAfter := s.AdminLoginLimiter.Allow(key, time.Now())
	if !allowed {
		w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())+1))
		WriteError(w, http.StatusTooManyRequests, "Too many login attempts from this IP, please try again after 15 minutes")
		return false
	}
	return true
}
