package httpmiddleware

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSConfig configures cross-origin access.
type CORSConfig struct {
	// AllowOrigins lists permitted origins. Empty or "*" permits any origin.
	AllowOrigins     []string
	AllowMethods     []string
	AllowHeaders     []string
	ExposeHeaders    []string
	AllowCredentials bool
	// MaxAge is the preflight cache lifetime in seconds. Zero omits it.
	MaxAge int
}

// CORS answers preflight requests and decorates actual requests with
// Access-Control headers. With credentials enabled the matching origin is
// echoed instead of "*".
func CORS(cfg CORSConfig) Middleware {
	origins := make(map[string]string, len(cfg.AllowOrigins))
	anyOrigin := len(cfg.AllowOrigins) == 0
	for _, o := range cfg.AllowOrigins {
		if o == "*" {
			anyOrigin = true
			continue
		}
		origins[strings.ToLower(o)] = o
	}

	methods := "GET, POST, PUT, PATCH, DELETE, OPTIONS"
	if len(cfg.AllowMethods) > 0 {
		methods = strings.Join(cfg.AllowMethods, ", ")
	}
	headers := strings.Join(cfg.AllowHeaders, ", ")
	expose := strings.Join(cfg.ExposeHeaders, ", ")

	allowed := func(origin string) string {
		if o, ok := origins[strings.ToLower(origin)]; ok {
			return o
		}
		switch {
		case !anyOrigin:
			return ""
		case cfg.AllowCredentials:
			return origin
		default:
			return "*"
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Add("Vary", "Origin")

			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}
			allow := allowed(origin)

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				h.Add("Vary", "Access-Control-Request-Method")
				h.Add("Vary", "Access-Control-Request-Headers")
				if allow != "" {
					h.Set("Access-Control-Allow-Origin", allow)
					h.Set("Access-Control-Allow-Methods", methods)
					reqHeaders := headers
					if reqHeaders == "" {
						reqHeaders = r.Header.Get("Access-Control-Request-Headers")
					}
					if reqHeaders != "" {
						h.Set("Access-Control-Allow-Headers", reqHeaders)
					}
					if cfg.AllowCredentials {
						h.Set("Access-Control-Allow-Credentials", "true")
					}
					if cfg.MaxAge > 0 {
						h.Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
					}
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}

			if allow != "" {
				h.Set("Access-Control-Allow-Origin", allow)
				if cfg.AllowCredentials {
					h.Set("Access-Control-Allow-Credentials", "true")
				}
				if expose != "" {
					h.Set("Access-Control-Expose-Headers", expose)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
