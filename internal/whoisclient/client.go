// Package whoisclient implements C5, the upstream WHOIS client: a plain
// RFC 3912 client with single-hop referral following and a DN42 fallback
// for private-space queries.
//
// The connect/write-query/read-to-EOF shape is the protocol's own; there is
// nothing analogous in the teacher to ground that part on. What the teacher
// does contribute is the logrus-based per-call structured logging idiom
// used throughout pkg/logger-derived code.
package whoisclient

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Akaere-NetWorks/whois-server/internal/dn42"
	"github.com/Akaere-NetWorks/whois-server/internal/errors"
)

const whoisPort = "43"

// referralPattern matches the minor variants spec.md §4.5/§9 names:
// "refer:", "whois:", "ReferralServer:" (case-insensitive), each optionally
// followed by a "whois://" scheme and/or a trailing port.
var referralPattern = regexp.MustCompile(`(?im)^\s*(?:refer|whois|referralserver)\s*:\s*(?:whois://)?([a-zA-Z0-9.-]+)`)

// Client talks RFC 3912 to a configured root server, follows at most one
// referral, and falls back to a DN42 manager for private-space queries.
type Client struct {
	RootServer string
	Timeout    time.Duration
	DN42       *dn42.Manager
	Log        *logrus.Logger
}

func New(rootServer string, timeout time.Duration, dn42Mgr *dn42.Manager, log *logrus.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{RootServer: rootServer, Timeout: timeout, DN42: dn42Mgr, Log: log}
}

// Query performs a single RFC 3912 round trip to host: connect, send
// "query\r\n", read until EOF.
func (c *Client) Query(ctx context.Context, host, query string) (string, error) {
	return c.queryAddr(ctx, host, net.JoinHostPort(host, whoisPort), query)
}

// queryAddr is Query with the dial target split out from the logical host
// name (used for referral-loop comparisons and error messages), so tests
// can point it at an ephemeral listener without needing port 43.
func (c *Client) queryAddr(ctx context.Context, host, dialAddr, query string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", dialAddr)
	if err != nil {
		return "", errors.Wrap(errors.KindUpstreamUnavailable, fmt.Sprintf("dial %s", host), err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if _, err := conn.Write([]byte(query + "\r\n")); err != nil {
		return "", errors.Wrap(errors.KindUpstreamUnavailable, fmt.Sprintf("write to %s", host), err)
	}

	var sb strings.Builder
	reader := bufio.NewReader(conn)
	buf := make([]byte, 4096)
	for {
		n, err := reader.Read(buf)
		if n > 0 {
			sb.Write(buf[:n])
		}
		if err != nil {
			break
		}
	}

	if sb.Len() == 0 {
		if ctx.Err() != nil {
			return "", errors.Wrap(errors.KindUpstreamTimeout, fmt.Sprintf("query %s", host), ctx.Err())
		}
	}
	return sb.String(), nil
}

// findReferral returns the first referred host in response, if any, that
// differs from currentHost.
func findReferral(response, currentHost string) (string, bool) {
	m := referralPattern.FindStringSubmatch(response)
	if m == nil {
		return "", false
	}
	host := strings.TrimSuffix(m[1], ".")
	if strings.EqualFold(host, currentHost) {
		return "", false
	}
	return host, true
}

// Lookup runs the full C5 pipeline for a standard Domain/IPv4/IPv6/ASN
// query: root query, at most one referral hop, then DN42 fallback when the
// classifier flagged the input as DN42-eligible or the public lookup came
// back empty.
func (c *Client) Lookup(ctx context.Context, query string, dn42Eligible bool) (string, error) {
	if dn42Eligible {
		if resp, ok := c.lookupDN42(ctx, query); ok {
			return resp, nil
		}
	}

	rootResp, err := c.Query(ctx, c.RootServer, query)
	if err != nil {
		if resp, ok := c.lookupDN42(ctx, query); ok {
			return resp, nil
		}
		if c.Log != nil {
			c.Log.WithError(err).WithField("host", c.RootServer).Warn("whoisclient: root query failed")
		}
		return fmt.Sprintf("%% Error: upstream query failed: %v\n", err), nil
	}

	result := rootResp
	if referredHost, ok := findReferral(rootResp, c.RootServer); ok {
		referredResp, err := c.Query(ctx, referredHost, query)
		if err != nil {
			if c.Log != nil {
				c.Log.WithError(err).WithField("host", referredHost).Warn("whoisclient: referral query failed")
			}
		} else {
			result = rootResp + fmt.Sprintf("\n%% referred to %s\n\n", referredHost) + referredResp
		}
	}

	if strings.TrimSpace(result) == "" {
		if resp, ok := c.lookupDN42(ctx, query); ok {
			return resp, nil
		}
		return "% No data available\n", nil
	}

	return result, nil
}

func (c *Client) lookupDN42(ctx context.Context, query string) (string, bool) {
	if c.DN42 == nil {
		return "", false
	}

	upper := strings.ToUpper(strings.TrimSuffix(query, "."))
	if strings.HasPrefix(upper, "AS") {
		if rec, ok, err := c.DN42.LookupASN(ctx, upper); err == nil && ok {
			return rec.Render(), true
		}
	}
	if addr, err := parseAddr(query); err == nil {
		if rec, ok := c.DN42.LookupIP(addr); ok {
			return rec.Render(), true
		}
	}
	if rec, ok, err := c.DN42.LookupID(ctx, "domain", strings.ToLower(query)); err == nil && ok {
		return rec.Render(), true
	}
	return "", false
}
