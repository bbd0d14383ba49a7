// Package websocket lets L2 talk to the controller directly over
// websocket, without a broker.
package websocket

import (
	"context"
	"net"
	"net/http"
	"sync"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	fx "github.com/robotalks/us1.go/pkg/framework"
	"github.com/robotalks/us1.go/pkg/l1/comm"
)

// DefaultPath is the path accepting connections.
const DefaultPath = "/l1"

// Server accepts websocket connections. Each connection can send
// commands, and receives all events.
type Server struct {
	Addr string
	Path string

	sessions map[*comm.Registrar]struct{}
	lock     sync.RWMutex
}

// NewServer creates a Server listening on addr.
func NewServer(addr string) *Server {
	return &Server{Addr: addr, Path: DefaultPath}
}

// Name implements Named.
func (s *Server) Name() string {
	return "websocket"
}

// SendEvent implements Registrar.
func (s *Server) SendEvent(ctx context.Context, msg fx.Message) error {
	var errs fx.AggregatedError
	for _, reg := range s.Sessions() {
		errs.Add(reg.SendEvent(ctx, msg))
	}
	return errs.Aggregate()
}

// Sessions returns the connected sessions.
func (s *Server) Sessions() []*comm.Registrar {
	s.lock.RLock()
	defer s.lock.RUnlock()
	regs := make([]*comm.Registrar, 0, len(s.sessions))
	for reg := range s.sessions {
		regs = append(regs, reg)
	}
	return regs
}

// AddToLoop implements LoopAdder.
func (s *Server) AddToLoop(loop *fx.Loop) {
	loop.AddRunnable(s)
}

// Handler returns the HTTP handler. ctx must come from the loop and
// cancels all sessions when done.
func (s *Server) Handler(ctx context.Context) http.Handler {
	path := s.Path
	if path == "" {
		path = DefaultPath
	}
	mux := http.NewServeMux()
	mux.Handle(path, websocket.Handler(func(conn *websocket.Conn) {
		s.serve(ctx, conn)
	}))
	return mux
}

// Run implements Runnable.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	glog.Infof("websocket on %s", ln.Addr())
	srv := &http.Server{Handler: s.Handler(ctx)}
	return fx.RunWithContextCloser(ctx, srv, func() error {
		if err := srv.Serve(ln); err != http.ErrServerClosed {
			return err
		}
		return nil
	})
}

func (s *Server) serve(ctx context.Context, conn *websocket.Conn) {
	rw := New(conn)
	reg := &comm.Registrar{}
	reg.Init(rw)
	remote := conn.Request().RemoteAddr

	s.lock.Lock()
	if s.sessions == nil {
		s.sessions = make(map[*comm.Registrar]struct{})
	}
	s.sessions[reg] = struct{}{}
	s.lock.Unlock()
	glog.V(2).Infof("websocket %s connected", remote)

	err := fx.RunWithContextCloser(ctx, rw, func() error {
		return reg.Run(ctx)
	})

	s.lock.Lock()
	delete(s.sessions, reg)
	s.lock.Unlock()
	if err != nil && err != context.Canceled {
		glog.Warningf("websocket %s: %v", remote, err)
		return
	}
	glog.V(2).Infof("websocket %s disconnected", remote)
}
