// Package server implements C9, the connection server: a concurrent TCP
// front end for the RFC 3912 wire protocol, with admission control,
// per-connection deadlines, optional traffic dumping, and an optional SSH
// REPL surface over the same C8 entry point.
//
// The admission-semaphore-plus-signal-driven-graceful-shutdown shape is
// grounded on the teacher's infrastructure/service/runner.go (deleted after
// extraction — see DESIGN.md; that file's body is blockchain-specific, but
// its "bounded channel admits work, os/signal triggers a coordinated
// shutdown of in-flight work" structure is what this package keeps).
package server

import (
	"bufio"
	"context"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Akaere-NetWorks/whois-server/internal/colorize"
	"github.com/Akaere-NetWorks/whois-server/internal/metrics"
	"github.com/Akaere-NetWorks/whois-server/internal/process"
)

// Handler is the narrow interface server depends on: one call per request,
// synchronous, returning the full response text. process.Processor
// satisfies this.
type Handler interface {
	Handle(ctx context.Context, rawQuery string, scheme colorize.Scheme, peer process.PeerInfo) string
}

// Config controls Server's runtime behavior, mirroring config.ServerConfig.
type Config struct {
	BindAddr       string
	MaxConnections int
	Timeout        time.Duration
	LineCap        int
	DumpDir        string
}

// Server accepts RFC 3912 connections and dispatches each to Handler.
type Server struct {
	cfg     Config
	handler Handler
	log     *logrus.Logger

	admission chan struct{}

	mu       sync.Mutex
	listener net.Listener
	wg       sync.WaitGroup
}

func New(cfg Config, handler Handler, log *logrus.Logger) *Server {
	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = 256
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.LineCap <= 0 {
		cfg.LineCap = 4096
	}
	return &Server{
		cfg:       cfg,
		handler:   handler,
		log:       log,
		admission: make(chan struct{}, cfg.MaxConnections),
	}
}

// Run listens on cfg.BindAddr and serves connections until ctx is
// cancelled. It blocks until the accept loop and all in-flight connections
// have exited.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.BindAddr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				s.wg.Wait()
				return nil
			default:
				if s.log != nil {
					s.log.WithError(err).Warn("server: accept failed")
				}
				continue
			}
		}

		select {
		case s.admission <- struct{}{}:
			s.wg.Add(1)
			go s.serve(ctx, conn)
		default:
			// Connection cap reached: immediate short refusal, per spec.md
			// §4.9's back-pressure policy. The accept loop keeps running.
			_, _ = conn.Write([]byte(process.Banner + "% Error: connection_limit_exceeded\n"))
			_ = conn.Close()
		}
	}
}

func (s *Server) serve(parentCtx context.Context, conn net.Conn) {
	defer s.wg.Done()
	defer func() { <-s.admission }()
	defer conn.Close()

	metrics.ConnectionGauge.Inc()
	defer metrics.ConnectionGauge.Dec()

	ctx, cancel := context.WithTimeout(parentCtx, s.cfg.Timeout)
	defer cancel()
	_ = conn.SetDeadline(time.Now().Add(s.cfg.Timeout))

	peer := process.PeerInfo{RemoteAddr: conn.RemoteAddr().String()}

	line, scheme, probe, err := s.readRequestLine(conn)
	if err != nil {
		return
	}

	if probe {
		// spec.md §8 scenario 6 fixes this as "a single capability line";
		// the general §7 banner requirement does not extend here.
		_, _ = conn.Write([]byte(colorize.Capabilities))
		s.dump(peer, []byte(line), nil)
		return
	}

	response := s.handler.Handle(ctx, line, scheme, peer)
	_, _ = conn.Write([]byte(response))
	s.dump(peer, []byte(line), []byte(response))
}

// readRequestLine reads the (optional color negotiation header and) query
// line, per spec.md §6.
func (s *Server) readRequestLine(conn net.Conn) (query string, scheme colorize.Scheme, probe bool, err error) {
	r := bufio.NewReaderSize(conn, s.cfg.LineCap)

	for i := 0; i < 2; i++ {
		raw, readErr := readLineCapped(r, s.cfg.LineCap)
		if readErr != nil {
			return "", colorize.SchemeNone, false, readErr
		}
		trimmed := strings.TrimSpace(raw)

		switch {
		case strings.EqualFold(trimmed, "X-WHOIS-COLOR-PROBE: 1"):
			return "", colorize.SchemeNone, true, nil
		case strings.HasPrefix(strings.ToUpper(trimmed), "X-WHOIS-COLOR:"):
			_, value, _ := strings.Cut(trimmed, ":")
			if sc, ok := colorize.ParseScheme(value); ok {
				scheme = sc
			}
			continue
		default:
			return trimmed, scheme, false, nil
		}
	}
	return "", scheme, false, io.ErrUnexpectedEOF
}

func readLineCapped(r *bufio.Reader, cap int) (string, error) {
	var sb strings.Builder
	for sb.Len() < cap {
		b, err := r.ReadByte()
		if err != nil {
			if sb.Len() > 0 {
				return sb.String(), nil
			}
			return "", err
		}
		if b == '\n' {
			return sb.String(), nil
		}
		if b != '\r' {
			sb.WriteByte(b)
		}
	}
	return sb.String(), nil
}

func (s *Server) dump(peer process.PeerInfo, request, response []byte) {
	if s.cfg.DumpDir == "" {
		return
	}
	name := strings.NewReplacer(":", "_", ".", "_").Replace(peer.RemoteAddr)
	path := filepath.Join(s.cfg.DumpDir, name+"-"+strconv.FormatInt(time.Now().UnixNano(), 10)+".log")
	var sb strings.Builder
	sb.Write(request)
	sb.WriteString("\n---\n")
	sb.Write(response)
	_ = os.WriteFile(path, []byte(sb.String()), 0o644)
}
