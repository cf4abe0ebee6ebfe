// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/luxfi/log"
	"github.com/luxfi/metric"
	"github.com/rs/cors"
)

const baseURL = "/ext"

var (
	ErrDuplicateRoute  = errors.New("route already registered")
	ErrNotBootstrapped = errors.New("VM not bootstrapped")

	_ Server = (*server)(nil)
)

// VM is a VM whose API the server exposes.
type VM interface {
	// CreateHandlers returns the handlers of the VM keyed by path suffix.
	CreateHandlers(ctx context.Context) (map[string]http.Handler, error)
	IsBootstrapped() bool
}

// Server maintains the HTTP router
type Server interface {
	// AddRoute registers a route to a handler.
	AddRoute(handler http.Handler, base, endpoint string) error
	// RegisterVM adds the API endpoints of vm under /ext/vm/<name>. Calls are
	// rejected until vm is bootstrapped.
	RegisterVM(ctx context.Context, name string, vm VM) error
	// Dispatch starts the API server. It returns http.ErrServerClosed after
	// Shutdown.
	Dispatch() error
	// Shutdown this server
	Shutdown() error
}

type HTTPConfig struct {
	ReadTimeout       time.Duration `json:"readTimeout"`
	ReadHeaderTimeout time.Duration `json:"readHeaderTimeout"`
	WriteTimeout      time.Duration `json:"writeTimeout"`
	IdleTimeout       time.Duration `json:"idleTimeout"`
}

type server struct {
	// log this server writes to
	log log.Logger

	shutdownTimeout time.Duration

	metrics *serverMetrics

	lock   sync.Mutex
	router *mux.Router
	routes map[string]struct{}

	srv *http.Server

	// Listener used to serve traffic
	listener net.Listener
}

// New returns an instance of a Server.
func New(
	log log.Logger,
	listener net.Listener,
	allowedOrigins []string,
	shutdownTimeout time.Duration,
	registerer metric.Registerer,
	httpConfig HTTPConfig,
	allowedHosts []string,
) (Server, error) {
	m, err := newMetrics(registerer)
	if err != nil {
		return nil, err
	}

	router := mux.NewRouter()
	httpServer := &http.Server{
		Handler:           wrapHandler(router, allowedOrigins, allowedHosts),
		ReadTimeout:       httpConfig.ReadTimeout,
		ReadHeaderTimeout: httpConfig.ReadHeaderTimeout,
		WriteTimeout:      httpConfig.WriteTimeout,
		IdleTimeout:       httpConfig.IdleTimeout,
	}

	log.Info("API created with allowed origins: " + strings.Join(allowedOrigins, ","))

	return &server{
		log:             log,
		shutdownTimeout: shutdownTimeout,
		metrics:         m,
		router:          router,
		routes:          make(map[string]struct{}),
		srv:             httpServer,
		listener:        listener,
	}, nil
}

func (s *server) Dispatch() error {
	return s.srv.Serve(s.listener)
}

func (s *server) RegisterVM(ctx context.Context, name string, vm VM) error {
	handlers, err := vm.CreateHandlers(ctx)
	if err != nil {
		return fmt.Errorf("failed to create handlers of %s: %w", name, err)
	}
	base := path.Join("vm", name)
	for extension, handler := range handlers {
		handler = rejectMiddleware(handler, vm)
		handler = s.metrics.wrapHandler(name, handler)
		if err := s.addRoute(handler, base, extension); err != nil {
			return err
		}
	}
	return nil
}

func (s *server) AddRoute(handler http.Handler, base, endpoint string) error {
	return s.addRoute(s.metrics.wrapHandler(base, handler), base, endpoint)
}

func (s *server) addRoute(handler http.Handler, base, endpoint string) error {
	url := fmt.Sprintf("%s/%s%s", baseURL, base, endpoint)

	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.routes[url]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateRoute, url)
	}
	s.log.Info("adding route",
		log.UserString("url", url),
	)
	s.routes[url] = struct{}{}
	s.router.Handle(url, handler)
	return nil
}

// Reject middleware wraps a handler. If the VM is not done bootstrapping,
// writes back an error.
func rejectMiddleware(handler http.Handler, vm VM) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !vm.IsBootstrapped() {
			http.Error(w, ErrNotBootstrapped.Error(), http.StatusServiceUnavailable)
			return
		}
		handler.ServeHTTP(w, r)
	})
}

func (s *server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	err := s.srv.Shutdown(ctx)
	cancel()

	// If shutdown times out, make sure the server is still shutdown.
	_ = s.srv.Close()
	return err
}

func wrapHandler(
	handler http.Handler,
	allowedOrigins []string,
	allowedHosts []string,
) http.Handler {
	h := filterInvalidHosts(handler, allowedHosts)
	return cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowCredentials: true,
	}).Handler(h)
}

// filterInvalidHosts rejects requests whose Host is not in allowedHosts.
// Requests addressed by IP and all requests when allowedHosts contains "*"
// are let through.
func filterInvalidHosts(handler http.Handler, allowedHosts []string) http.Handler {
	allowed := make(map[string]struct{}, len(allowedHosts))
	for _, host := range allowedHosts {
		if host == "*" {
			return handler
		}
		allowed[strings.ToLower(host)] = struct{}{}
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host := r.Host
		if h, _, err := net.SplitHostPort(host); err == nil {
			host = h
		}
		if host == "" || net.ParseIP(host) != nil {
			handler.ServeHTTP(w, r)
			return
		}
		if _, ok := allowed[strings.ToLower(host)]; !ok {
			http.Error(w, "invalid host specified", http.StatusForbidden)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
