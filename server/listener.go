package main

import (
	"errors"
	"net"
	"time"

	"github.com/sirupsen/logrus"
)

const monitorInterval = time.Second

// ListenerServer binds the listening endpoint and hands every accepted
// connection to the registry as a new session.
type ListenerServer struct {
	addr     string
	registry *Registry
	db       *Database
	ln       net.Listener
}

func NewListenerServer(addr string, registry *Registry, db *Database) *ListenerServer {
	return &ListenerServer{addr: addr, registry: registry, db: db}
}

func (srv *ListenerServer) Start() error {
	ln, err := net.Listen("tcp", srv.addr)
	if err != nil {
		return err
	}
	srv.ln = ln
	go srv.acceptLoop()
	return nil
}

func (srv *ListenerServer) Addr() string {
	if srv.ln != nil {
		return srv.ln.Addr().String()
	}
	return srv.addr
}

func (srv *ListenerServer) Stop() {
	if srv.ln != nil {
		_ = srv.ln.Close()
	}
}

// acceptLoop runs until the listener is closed. One failed accept must not
// bring down the listener, so errors are logged and the loop continues.
func (srv *ListenerServer) acceptLoop() {
	for {
		conn, err := srv.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			logrus.Errorf("Accept failed: %v", err)
			continue
		}

		sess := srv.registry.Register(conn)
		logrus.Infof("Session %d (%s) opened from %s", sess.ID, sess.Codename, sess.RemoteAddr)
		if err := srv.db.SaveSession(sess); err != nil {
			logrus.Errorf("Error saving session %d: %v", sess.ID, err)
		}
		go srv.watchSession(sess.ID)
	}
}

// watchSession is the per-session lifecycle monitor. It polls the registry
// until the session is gone, then makes sure the handle is closed and the
// record is marked. Dead sockets are not detected here: that happens when a
// channel read fails and the caller removes the session.
func (srv *ListenerServer) watchSession(id int) {
	ticker := time.NewTicker(monitorInterval)
	defer ticker.Stop()

	for range ticker.C {
		if _, ok := srv.registry.Get(id); !ok {
			break
		}
	}

	srv.registry.Remove(id)
	if err := srv.db.MarkSessionClosed(id, time.Now()); err != nil {
		logrus.Errorf("Error closing session record %d: %v", id, err)
	}
	logrus.Infof("Session %d closed", id)
}
