package websocket

import (
	"context"
	"net"
	"net/http"
	"net/url"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	fx "github.com/robotalks/lockstep/pkg/framework"
	"github.com/robotalks/lockstep/pkg/l1/comm"
)

// DefaultPath is the HTTP path serving sessions.
const DefaultPath = "/l1"

// Server accepts websocket sessions for a Hub.
type Server struct {
	Address string
	Path    string
	Hub     *comm.Hub
}

// AddToLoop implements LoopAdder.
func (s *Server) AddToLoop(loop *fx.Loop) {
	loop.AddRunnable(s)
}

// Run implements Runnable.
func (s *Server) Run(ctx context.Context) error {
	path := s.Path
	if path == "" {
		path = DefaultPath
	}
	mux := http.NewServeMux()
	mux.Handle(path, websocket.Handler(func(conn *websocket.Conn) {
		glog.V(1).Infof("websocket session from %s", conn.Request().RemoteAddr)
		s.Hub.Serve(ctx, New(conn))
	}))
	ln, err := net.Listen("tcp", s.Address)
	if err != nil {
		return err
	}
	glog.Infof("listening ws %s%s", ln.Addr(), path)
	srv := &http.Server{Handler: mux}
	return fx.RunWithContextCloser(ctx, srv, func() error {
		return srv.Serve(ln)
	})
}

// Dialer returns a comm.Dialer connecting to a ws:// or wss:// URL.
func Dialer(serverURL string) comm.Dialer {
	return func(ctx context.Context) (comm.PacketReadWriteCloser, error) {
		u, err := url.Parse(serverURL)
		if err != nil {
			return nil, err
		}
		if u.Path == "" {
			u.Path = DefaultPath
		}
		origin := &url.URL{Scheme: "http", Host: u.Host}
		if u.Scheme == "wss" {
			origin.Scheme = "https"
		}
		conf, err := websocket.NewConfig(u.String(), origin.String())
		if err != nil {
			return nil, err
		}
		conn, err := conf.DialContext(ctx)
		if err != nil {
			return nil, err
		}
		return New(conn), nil
	}
}
