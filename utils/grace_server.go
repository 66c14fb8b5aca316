package utils

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

const (
	defaultReadTimeout = 60 * time.Second
	// Uploads stream the whole request body before the handler answers
	defaultWriteTimeout = 2 * defaultReadTimeout
	shutdownTimeout     = 30 * time.Second

	gracefulEnvKey   = "IS_GRACEFUL"
	gracefulEnvValue = gracefulEnvKey + "=1"
	// fd 3 is the first descriptor after stdin, stdout and stderr
	gracefulListenerFD = 3
)

// Server wraps http.Server with signal driven shutdown and zero-downtime restart.
//
// SIGTERM and SIGINT drain in-flight requests and stop. SIGUSR2 forks a child
// that inherits the listening socket, then drains the parent.
type Server struct {
	*http.Server

	listener     net.Listener
	isGraceful   bool
	signalChan   chan os.Signal
	shutdownOnce sync.Once
	shutdownChan chan struct{}
	onShutdown   []func()
}

// NewServer creates a Server with timeouts and handler.
func NewServer(addr string, handler http.Handler, readTimeout, writeTimeout time.Duration) *Server {
	return &Server{
		Server: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadTimeout:       readTimeout,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      writeTimeout,
		},
		isGraceful:   os.Getenv(gracefulEnvKey) != "",
		signalChan:   make(chan os.Signal, 1),
		shutdownChan: make(chan struct{}),
	}
}

// OnShutdown registers fn to run before the server starts draining, e.g. to
// stop background sweepers.
func (srv *Server) OnShutdown(fn func()) {
	srv.onShutdown = append(srv.onShutdown, fn)
}

// ListenAndServe starts serving on tcp and handles signals.
func (srv *Server) ListenAndServe() error {
	addr := srv.Addr
	if addr == "" {
		addr = ":http"
	}
	ln, err := srv.getNetListener(addr)
	if err != nil {
		return err
	}
	srv.listener = ln
	return srv.serve()
}

func (srv *Server) serve() error {
	go srv.handleSignals()
	if err := srv.Server.Serve(srv.listener); err != http.ErrServerClosed {
		return err
	}
	// Wait until Shutdown finished
	<-srv.shutdownChan
	return nil
}

func (srv *Server) getNetListener(addr string) (net.Listener, error) {
	if srv.isGraceful {
		file := os.NewFile(gracefulListenerFD, "")
		ln, err := net.FileListener(file)
		if err != nil {
			return nil, fmt.Errorf("net.FileListener error: %w", err)
		}
		return ln, nil
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("net.Listen error: %w", err)
	}
	return ln, nil
}

func (srv *Server) handleSignals() {
	signal.Notify(srv.signalChan, syscall.SIGTERM, syscall.SIGINT, syscall.SIGUSR2)

	for sig := range srv.signalChan {
		switch sig {
		case syscall.SIGTERM, syscall.SIGINT:
			Sugar.Infow("graceful shutdown", "signal", sig.String())
			srv.shutdownHTTPServer()
			return
		case syscall.SIGUSR2:
			Sugar.Info("received SIGUSR2, graceful restarting HTTP server")
			pid, err := srv.startNewProcess()
			if err != nil {
				Sugar.Errorf("start new process failed: %v, continue serving", err)
				continue
			}
			Sugar.Infow("new process started, draining old server", "pid", pid)
			srv.shutdownHTTPServer()
			return
		}
	}
}

func (srv *Server) shutdownHTTPServer() {
	srv.shutdownOnce.Do(func() {
		defer close(srv.shutdownChan)
		for _, fn := range srv.onShutdown {
			fn()
		}
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			Sugar.Errorf("HTTP server shutdown error: %v", err)
			return
		}
		Sugar.Info("HTTP server shutdown success")
	})
}

// startNewProcess forks the current binary and hands it the listening socket.
func (srv *Server) startNewProcess() (uintptr, error) {
	tcpLn, ok := srv.listener.(*net.TCPListener)
	if !ok {
		return 0, fmt.Errorf("listener is not *net.TCPListener")
	}
	file, err := tcpLn.File()
	if err != nil {
		return 0, fmt.Errorf("get listener file: %w", err)
	}
	defer file.Close()

	envs := make([]string, 0, len(os.Environ())+1)
	for _, e := range os.Environ() {
		if e != gracefulEnvValue {
			envs = append(envs, e)
		}
	}
	envs = append(envs, gracefulEnvValue)

	attr := &syscall.ProcAttr{
		Env:   envs,
		Files: []uintptr{os.Stdin.Fd(), os.Stdout.Fd(), os.Stderr.Fd(), file.Fd()},
	}
	pid, err := syscall.ForkExec(os.Args[0], os.Args, attr)
	if err != nil {
		return 0, fmt.Errorf("forkexec: %w", err)
	}
	return uintptr(pid), nil
}

// GraceServer starts an HTTP server with graceful capabilities. Each onShutdown
// hook runs once before in-flight requests are drained.
func GraceServer(addr string, handler http.Handler, onShutdown ...func()) error {
	srv := NewServer(addr, handler, defaultReadTimeout, defaultWriteTimeout)
	for _, fn := range onShutdown {
		srv.OnShutdown(fn)
	}
	return srv.ListenAndServe()
}
