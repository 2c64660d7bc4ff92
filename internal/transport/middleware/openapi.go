package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/frahmantamala/budget-ledger/internal"
	"github.com/frahmantamala/budget-ledger/internal/transport"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/legacy"
)

// RequestValidator rejects requests whose parameters or body do not match the API document.
type RequestValidator struct {
	*transport.BaseHandler
	router routers.Router
	prefix string
}

// NewRequestValidator loads an OpenAPI 3 document. Paths in the document are relative to prefix.
func NewRequestValidator(spec []byte, prefix string, logger *slog.Logger) (*RequestValidator, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(spec)
	if err != nil {
		return nil, fmt.Errorf("load openapi document: %w", err)
	}
	// routes are matched on the stripped path, not against server URLs
	doc.Servers = nil

	router, err := legacy.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("build openapi router: %w", err)
	}

	return &RequestValidator{
		BaseHandler: transport.NewBaseHandler(logger),
		router:      router,
		prefix:      strings.TrimSuffix(prefix, "/"),
	}, nil
}

func (v *RequestValidator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := r.Clone(r.Context())
		req.URL.Path = strings.TrimPrefix(r.URL.Path, v.prefix)
		req.URL.RawPath = ""

		route, pathParams, err := v.router.FindRoute(req)
		if err != nil {
			// unknown routes and methods are left to the mux
			next.ServeHTTP(w, r)
			return
		}

		input := &openapi3filter.RequestValidationInput{
			Request:    req,
			PathParams: pathParams,
			Route:      route,
			Options: &openapi3filter.Options{
				AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
				MultiError:         false,
			},
		}
		if err := openapi3filter.ValidateRequest(context.WithoutCancel(r.Context()), input); err != nil {
			v.Logger.InfoContext(r.Context(), "request failed schema validation",
				"method", r.Method,
				"path", r.URL.Path,
				"error", err)
			v.HandleServiceError(w, internal.NewValidationError(validationMessage(err), internal.ErrCodeValidationFailed))
			return
		}

		// the filter consumed the body and left a rewound copy on the clone
		r.Body = req.Body
		next.ServeHTTP(w, r)
	})
}

func validationMessage(err error) string {
	switch e := err.(type) {
	case *openapi3filter.RequestError:
		if e.Parameter != nil {
			return fmt.Sprintf("invalid parameter %q: %s", e.Parameter.Name, e.Reason)
		}
		if e.RequestBody != nil {
			if e.Err != nil {
				return "invalid request body: " + firstLine(e.Err.Error())
			}
			return "invalid request body: " + e.Reason
		}
		return firstLine(e.Error())
	default:
		return firstLine(err.Error())
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
