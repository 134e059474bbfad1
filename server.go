package main

import (
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/acme/autocert"
)

const greeting = "Hello World - This is a version 2"

func init() {
	// Debug mode prints every registered route to stdout.
	gin.SetMode(gin.ReleaseMode)
}

func helloHandler(c *gin.Context) {
	c.String(http.StatusOK, greeting)
}

// newRouter registers the only route. Everything else falls through to
// gin's default 404, POST / included.
func newRouter(m *metrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if m != nil {
		r.Use(m.middleware())
	}
	r.GET("/", helloHandler)
	return r
}

// listener is a bound socket together with the server that will serve it.
type listener struct {
	name string
	ln   net.Listener
	srv  *http.Server
	tls  bool
}

func (l *listener) serve() error {
	var err error
	if l.tls {
		err = l.srv.ServeTLS(l.ln, "", "")
	} else {
		err = l.srv.Serve(l.ln)
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return fmt.Errorf("%s server: %w", l.name, err)
}

func bind(name, addr string, handler http.Handler) (*listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%s server failed to listen on %s: %w", name, addr, err)
	}
	return &listener{
		name: name,
		ln:   ln,
		srv:  &http.Server{Handler: handler},
	}, nil
}

// bindAll binds every listener the config asks for. Either all of them are
// bound or none is left open.
func bindAll(cfg Config, router http.Handler, m *metrics) ([]*listener, error) {
	var bound []*listener
	closeAll := func() {
		for _, l := range bound {
			l.ln.Close()
		}
	}

	mainHandler := router
	var certManager *autocert.Manager
	if cfg.TLSEnabled() {
		certManager = &autocert.Manager{
			Prompt:     autocert.AcceptTOS,
			HostPolicy: autocert.HostWhitelist(cfg.TLS.Domains...),
			Cache:      autocert.DirCache(cfg.TLS.CacheDir),
			Email:      cfg.TLS.Email,
		}
		// ACME challenges are answered here, every other request reaches the router.
		mainHandler = certManager.HTTPHandler(router)
	}

	l, err := bind("http", cfg.Addr(), mainHandler)
	if err != nil {
		return nil, err
	}
	bound = append(bound, l)

	if certManager != nil {
		l, err := bind("https", cfg.TLS.Addr, router)
		if err != nil {
			closeAll()
			return nil, err
		}
		l.srv.TLSConfig = certManager.TLSConfig()
		l.tls = true
		bound = append(bound, l)
	}

	if cfg.MetricsAddr != "" && m != nil {
		l, err := bind("metrics", cfg.MetricsAddr, m.handler())
		if err != nil {
			closeAll()
			return nil, err
		}
		bound = append(bound, l)
	}
	return bound, nil
}
