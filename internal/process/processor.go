// Package process implements C8, the request processor: the pipeline that
// ties classification (C6), dispatch (C7), DN42 fallback (C4), patching
// (C2), colorization, and stats recording (C10) into one call per request.
//
// The layered, side-effect-ordered pipeline (classify, dispatch, fallback,
// rewrite, record) mirrors the teacher's service-composition idiom: a
// top-level Runner/Processor type that threads one request object through a
// fixed sequence of named steps rather than a framework-style middleware
// chain, grounded on the shape of the teacher's service layer before its
// blockchain-specific bodies were dropped (see DESIGN.md). Errors at any
// step are folded into a "% Error: ..." comment line rather than aborting
// the call, per spec.md §4.8's "the processor never aborts the connection".
package process

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Akaere-NetWorks/whois-server/internal/classify"
	"github.com/Akaere-NetWorks/whois-server/internal/colorize"
	"github.com/Akaere-NetWorks/whois-server/internal/dn42"
	"github.com/Akaere-NetWorks/whois-server/internal/patch"
	"github.com/Akaere-NetWorks/whois-server/internal/registry"
	"github.com/Akaere-NetWorks/whois-server/internal/stats"
	"github.com/Akaere-NetWorks/whois-server/internal/whoisclient"
)

// PeerInfo carries connection-identifying metadata for logging/telemetry;
// it does not influence dispatch.
type PeerInfo struct {
	RemoteAddr string
}

// Banner is the fixed comment line every response begins with, per
// spec.md §7 ("responses always start with a server banner comment").
// It is prepended after patch/colorize so a patch rule can never rewrite
// it and colorize never paints it, the same way C9's color-probe
// capability line bypasses both.
const Banner = "% akaere-whois-server\n"

// Processor wires together the components a request passes through.
type Processor struct {
	Registry    *registry.Registry
	DN42        *dn42.Manager
	WhoisClient *whoisclient.Client
	Patch       *patch.Engine
	Stats       *stats.Stats
	Log         *logrus.Logger
}

// Handle runs the full C8 pipeline for one request and returns the final
// response text, ready to write to the connection.
func (p *Processor) Handle(ctx context.Context, rawQuery string, scheme colorize.Scheme, peer PeerInfo) string {
	start := time.Now()
	requestID := uuid.New().String()
	q := classify.Classify(rawQuery, p.Registry.PluginSuffixes())

	response, isError := p.dispatch(ctx, q)

	if p.Patch != nil {
		response = p.Patch.Apply(rawQuery, response)
	}

	response = colorize.Apply(response, scheme)
	response = Banner + response

	if p.Stats != nil {
		p.Stats.Record(q.Kind.String(), len(response), time.Since(start), isError)
	}

	if p.Log != nil {
		p.Log.WithFields(logrus.Fields{
			"request_id": requestID,
			"kind":       q.Kind.String(),
			"peer":       peer.RemoteAddr,
			"bytes":      len(response),
			"millis":     time.Since(start).Milliseconds(),
			"error":      isError,
		}).Debug("process: request handled")
	}

	return response
}

// dispatch performs steps 2-4: handler lookup/invocation and DN42 fallback
// when the handler came back empty on a DN42-eligible query.
func (p *Processor) dispatch(ctx context.Context, q classify.Query) (response string, isError bool) {
	handler, ok := p.Registry.Lookup(q)
	if !ok {
		return fmt.Sprintf("%% Error: no handler for query kind %s\n", q.Kind), true
	}

	resp, err := handler(ctx, q)
	if err != nil {
		resp = fmt.Sprintf("%% Error: %v\n", err)
		isError = true
	}

	if strings.TrimSpace(resp) == "" && (q.DN42Eligible || isError) && p.WhoisClient != nil {
		if fallback, fbErr := p.WhoisClient.Lookup(ctx, q.Payload, q.DN42Eligible); fbErr == nil && strings.TrimSpace(fallback) != "" {
			return fallback, false
		}
	}

	return resp, isError
}
