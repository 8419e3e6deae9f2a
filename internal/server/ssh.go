package server

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"

	"github.com/Akaere-NetWorks/whois-server/internal/colorize"
	"github.com/Akaere-NetWorks/whois-server/internal/metrics"
	"github.com/Akaere-NetWorks/whois-server/internal/process"
)

// SSHConfig controls the optional SSH REPL surface (spec.md §4.9).
type SSHConfig struct {
	BindAddr    string
	HostKeyPath string
	Timeout     time.Duration
}

// SSHServer presents a REPL loop over the same C8 entry point used by the
// TCP front end: one prompt per line, each line re-running Handler.Handle,
// with the per-line deadline reset spec.md §4.9 calls for.
type SSHServer struct {
	cfg       SSHConfig
	handler   Handler
	log       *logrus.Logger
	sshConfig *ssh.ServerConfig
}

// NewSSHServer loads the host key at cfg.HostKeyPath (generating none — an
// operator-provided key is required, matching spec.md §9's "no native
// code loading/fabrication" spirit extended to secrets) and accepts
// unauthenticated sessions, since the primary protocol itself has no
// concept of identity either.
func NewSSHServer(cfg SSHConfig, handler Handler, log *logrus.Logger) (*SSHServer, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	keyBytes, err := os.ReadFile(cfg.HostKeyPath)
	if err != nil {
		return nil, fmt.Errorf("ssh: read host key: %w", err)
	}
	signer, err := ssh.ParsePrivateKey(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("ssh: parse host key: %w", err)
	}

	sc := &ssh.ServerConfig{NoClientAuth: true}
	sc.AddHostKey(signer)

	return &SSHServer{cfg: cfg, handler: handler, log: log, sshConfig: sc}, nil
}

// Run listens on cfg.BindAddr, accepting SSH connections until ctx is
// cancelled.
func (s *SSHServer) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.BindAddr)
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				if s.log != nil {
					s.log.WithError(err).Warn("ssh: accept failed")
				}
				continue
			}
		}
		go s.handleConn(ctx, conn)
	}
}

func (s *SSHServer) handleConn(ctx context.Context, conn net.Conn) {
	sshConn, chans, reqs, err := ssh.NewServerConn(conn, s.sshConfig)
	if err != nil {
		_ = conn.Close()
		return
	}
	defer sshConn.Close()
	go ssh.DiscardRequests(reqs)

	for newChan := range chans {
		if newChan.ChannelType() != "session" {
			_ = newChan.Reject(ssh.UnknownChannelType, "only session channels are supported")
			continue
		}
		channel, requests, err := newChan.Accept()
		if err != nil {
			continue
		}
		go s.handleSession(ctx, channel, requests, process.PeerInfo{RemoteAddr: sshConn.RemoteAddr().String()})
	}
}

func (s *SSHServer) handleSession(ctx context.Context, channel ssh.Channel, requests <-chan *ssh.Request, peer process.PeerInfo) {
	defer channel.Close()

	metrics.ConnectionGauge.Inc()
	defer metrics.ConnectionGauge.Dec()

	go func() {
		for req := range requests {
			if req.WantReply {
				_ = req.Reply(req.Type == "shell" || req.Type == "pty-req", nil)
			}
		}
	}()

	scanner := bufio.NewScanner(channel)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		reqCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
		response := s.handler.Handle(reqCtx, line, colorize.SchemeNone, peer)
		cancel()

		if _, err := channel.Write([]byte(response)); err != nil {
			return
		}
		if _, err := channel.Write([]byte("whois> ")); err != nil {
			return
		}
	}
}
