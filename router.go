package oidc

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/hooklift/oidc/internal/random"
	"github.com/hooklift/oidc/metrics"
)

// Server wires a validated Options and a host Provider into the
// protocol machinery: request decoding, endpoint dispatch, grant
// dispatch, token serialization and response rendering.
type Server struct {
	opts     *Options
	provider Provider
	ser      *serializer
	codes    codeCache

	routes []route
}

type endpointHandler func(s *Server, w http.ResponseWriter, req *http.Request)

type route struct {
	path     string
	endpoint Endpoint
	methods  map[string]endpointHandler
}

// New validates opts and builds a Server ready to be mounted with
// Handler. provider must not be nil; embed BaseProvider in a host type
// to pick up safe defaults for hooks that don't need customizing.
func New(opts *Options, provider Provider) (*Server, error) {
	if provider == nil {
		return nil, fmt.Errorf("oidc: a Provider implementation is required")
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	ser, err := newSerializer(opts)
	if err != nil {
		return nil, fmt.Errorf("oidc: building token serializer: %w", err)
	}

	s := &Server{
		opts:     opts,
		provider: provider,
		ser:      ser,
		codes:    codeCache{backend: opts.Cache, rng: opts.random()},
	}

	add := func(path string, ep Endpoint, methods map[string]endpointHandler) {
		if path == "" {
			return
		}
		s.routes = append(s.routes, route{path: path, endpoint: ep, methods: methods})
	}

	add(opts.AuthorizationEndpointPath, EndpointAuthorization, map[string]endpointHandler{
		http.MethodGet:  handleAuthorize,
		http.MethodPost: handleAuthorize,
	})
	add(opts.TokenEndpointPath, EndpointToken, map[string]endpointHandler{
		http.MethodPost: handleToken,
	})
	add(opts.ValidationEndpointPath, EndpointValidation, map[string]endpointHandler{
		http.MethodPost: handleIntrospect,
	})
	add(opts.ProfileEndpointPath, EndpointProfile, map[string]endpointHandler{
		http.MethodGet:  handleUserinfo,
		http.MethodPost: handleUserinfo,
	})
	add(opts.LogoutEndpointPath, EndpointLogout, map[string]endpointHandler{
		http.MethodGet:  handleLogout,
		http.MethodPost: handleLogout,
	})
	add(opts.ConfigurationEndpointPath, EndpointConfiguration, map[string]endpointHandler{
		http.MethodGet: handleDiscovery,
	})
	add(opts.CryptographyEndpointPath, EndpointCryptography, map[string]endpointHandler{
		http.MethodGet: handleJWKS,
	})

	return s, nil
}

// Handler returns an http.Handler that serves every configured
// endpoint and falls through to next for anything else, the same
// composition shape as http.StripPrefix or http.TimeoutHandler.
func (s *Server) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		for _, r := range s.routes {
			matched := strings.HasPrefix(req.URL.Path, r.path)
			mc := &MatchContext{Request: req, Endpoint: r.endpoint, Matched: matched}
			if err := s.provider.MatchEndpoint(req.Context(), mc); err != nil {
				http.Error(w, "internal server error", http.StatusInternalServerError)
				return
			}
			if !mc.Matched {
				continue
			}

			handlerFn, ok := r.methods[req.Method]
			if !ok {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			metrics.Middleware(r.endpoint.String(), http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				handlerFn(s, w, req)
			})).ServeHTTP(w, req)
			return
		}

		next.ServeHTTP(w, req)
	})
}

func (s *Server) newUniqueIDOfLength(n int) (string, error) {
	return random.Token(s.opts.random(), n)
}
