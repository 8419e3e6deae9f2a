package handlers

import (
	"context"

	"github.com/Akaere-NetWorks/whois-server/internal/classify"
	"github.com/Akaere-NetWorks/whois-server/internal/registry"
)

// registerRaw wires the Raw{Domain,IPv4,IPv6,ASN,Cidr} kinds to C5's
// referral-following client. Each delegates the DN42-first decision to
// q.DN42Eligible, which C6 already computed from the payload shape; the
// client (and, failing that, C8's own fallback) handles a DN42 miss.
func registerRaw(must func(classify.Kind, string, registry.Handler), d *Deps) {
	rawLookup := func(ctx context.Context, q classify.Query) (string, error) {
		if d.WhoisClient == nil {
			return errLine("upstream client not configured"), nil
		}
		return d.WhoisClient.Lookup(ctx, q.Payload, q.DN42Eligible)
	}

	must(classify.KindRawDomain, "", rawLookup)
	must(classify.KindRawIPv4, "", rawLookup)
	must(classify.KindRawIPv6, "", rawLookup)
	must(classify.KindRawASN, "", rawLookup)
	must(classify.KindRawCIDR, "", rawLookup)
}
