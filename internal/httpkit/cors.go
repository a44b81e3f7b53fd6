package httpkit

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSOptions configures the CORS middleware. Zero-value lists fall
// back to the defaults a JSON API needs.
type CORSOptions struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAgeSeconds    int
}

// CORS answers preflight requests and stamps the allow headers on
// responses to allowed origins. "*" in AllowedOrigins allows any.
func CORS(opt CORSOptions) func(http.Handler) http.Handler {
	if len(opt.AllowedMethods) == 0 {
		opt.AllowedMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(opt.AllowedHeaders) == 0 {
		opt.AllowedHeaders = []string{"Content-Type", "Authorization", "Accept"}
	}
	if opt.MaxAgeSeconds == 0 {
		opt.MaxAgeSeconds = 600
	}

	origins := map[string]bool{}
	for _, o := range opt.AllowedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins[o] = true
		}
	}

	methods := strings.Join(opt.AllowedMethods, ", ")
	headers := strings.Join(opt.AllowedHeaders, ", ")
	exposed := strings.Join(opt.ExposedHeaders, ", ")
	maxAge := strconv.Itoa(opt.MaxAgeSeconds)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && (origins["*"] || origins[origin]) {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
				h.Set("Access-Control-Allow-Methods", methods)
				h.Set("Access-Control-Allow-Headers", headers)
				h.Set("Access-Control-Max-Age", maxAge)
				if exposed != "" {
					h.Set("Access-Control-Expose-Headers", exposed)
				}
				if opt.AllowCredentials {
					h.Set("Access-Control-Allow-Credentials", "true")
				}
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
