package handlers

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/Akaere-NetWorks/whois-server/internal/classify"
	"github.com/Akaere-NetWorks/whois-server/internal/registry"
)

// registerNetworkTools wires the networking-diagnostic suffix tags: GEO,
// RIRGEO, BGPTOOL, PREFIXES, LG, RPKI, MANRS, DNS, TRACE/TRACEROUTE, SSL,
// CRT, EMAIL, PEN, ICP, CFSTATUS, PEERINGDB, RDAP. Most fetch a single
// third-party JSON endpoint and render it as RPSL-style key/value lines,
// the same shape C4's RPSL records already use.
func registerNetworkTools(must func(classify.Kind, string, registry.Handler), d *Deps) {
	must(classify.KindSuffix, "GEO", geoHandler(d))
	must(classify.KindSuffix, "RIRGEO", geoHandler(d)) // RIR-reported geofeed is out of scope for a free API; reuse ip-api's country/ASN view
	must(classify.KindSuffix, "BGPTOOL", bgpToolHandler(d))
	must(classify.KindSuffix, "PREFIXES", prefixesHandler(d))
	must(classify.KindSuffix, "LG", lookingGlassHandler(d))
	must(classify.KindRPKI, "", rpkiHandler(d))
	must(classify.KindSuffix, "MANRS", manrsHandler(d))
	must(classify.KindSuffix, "DNS", dnsHandler(d))
	must(classify.KindSuffix, "TRACE", traceHandler(d))
	must(classify.KindSuffix, "TRACEROUTE", traceHandler(d))
	must(classify.KindSuffix, "SSL", sslHandler(d))
	must(classify.KindSuffix, "CRT", crtHandler(d))
	must(classify.KindSuffix, "EMAIL", emailHandler(d))
	must(classify.KindSuffix, "PEN", penHandler(d))
	must(classify.KindSuffix, "ICP", icpHandler(d))
	must(classify.KindSuffix, "CFSTATUS", cfStatusHandler(d))
	must(classify.KindSuffix, "PEERINGDB", peeringDBHandler(d))
	must(classify.KindSuffix, "RDAP", rdapHandler(d))
}

// ipAPIResponse is ip-api.com's batch-free JSON shape.
type ipAPIResponse struct {
	Status     string `json:"status"`
	Message    string `json:"message"`
	Country    string `json:"country"`
	RegionName string `json:"regionName"`
	City       string `json:"city"`
	ISP        string `json:"isp"`
	Org        string `json:"org"`
	AS         string `json:"as"`
	Query      string `json:"query"`
}

func geoHandler(d *Deps) registry.Handler {
	return func(ctx context.Context, q classify.Query) (string, error) {
		target, err := resolveToIP(ctx, q.Payload)
		if err != nil {
			return errLine("geo: %v", err), nil
		}
		var out ipAPIResponse
		url := fmt.Sprintf("http://ip-api.com/json/%s?fields=status,message,country,regionName,city,isp,org,as,query", target)
		if err := fetchJSON(ctx, d.HTTPClient, url, nil, &out); err != nil {
			return errLine("geo lookup failed: %v", err), nil
		}
		if out.Status != "success" {
			return errLine("geo lookup failed: %s", out.Message), nil
		}
		var b strings.Builder
		comment(&b, "geolocation for "+q.Payload)
		line(&b, "address", out.Query)
		line(&b, "country", out.Country)
		line(&b, "region", out.RegionName)
		line(&b, "city", out.City)
		line(&b, "isp", out.ISP)
		line(&b, "org", out.Org)
		line(&b, "origin-as", out.AS)
		return b.String(), nil
	}
}

func resolveToIP(ctx context.Context, payload string) (string, error) {
	if net.ParseIP(payload) != nil {
		return payload, nil
	}
	resolver := net.DefaultResolver
	addrs, err := resolver.LookupIPAddr(ctx, payload)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", payload, err)
	}
	if len(addrs) == 0 {
		return "", fmt.Errorf("no address found for %q", payload)
	}
	return addrs[0].String(), nil
}

// bgpToolASN mirrors bgp.tools' JSON whois-style API shape for an ASN.
type bgpToolASN struct {
	ASN         int    `json:"asn"`
	Name        string `json:"name"`
	Description string `json:"description"`
	CountryCode string `json:"country_code"`
}

func bgpToolHandler(d *Deps) registry.Handler {
	return func(ctx context.Context, q classify.Query) (string, error) {
		asn := strings.TrimPrefix(strings.ToUpper(q.Payload), "AS")
		var out bgpToolASN
		url := fmt.Sprintf("https://bgp.tools/api/internal/whois/AS%s", asn)
		if err := fetchJSON(ctx, d.HTTPClient, url, map[string]string{"Accept": "application/json"}, &out); err != nil {
			return errLine("bgp.tools lookup failed: %v", err), nil
		}
		var b strings.Builder
		comment(&b, "bgp.tools summary")
		line(&b, "origin", fmt.Sprintf("AS%d", out.ASN))
		line(&b, "name", out.Name)
		line(&b, "descr", out.Description)
		line(&b, "country", out.CountryCode)
		return b.String(), nil
	}
}

func prefixesHandler(d *Deps) registry.Handler {
	return func(ctx context.Context, q classify.Query) (string, error) {
		asn := strings.TrimPrefix(strings.ToUpper(q.Payload), "AS")
		var out struct {
			Data struct {
				Prefixes []struct {
					Prefix string `json:"prefix"`
				} `json:"prefixes"`
			} `json:"data"`
		}
		url := fmt.Sprintf("https://stat.ripe.net/data/announced-prefixes/data.json?resource=AS%s", asn)
		if err := fetchJSON(ctx, d.HTTPClient, url, nil, &out); err != nil {
			return errLine("prefixes lookup failed: %v", err), nil
		}
		var b strings.Builder
		comment(&b, "announced prefixes for AS"+asn)
		for _, p := range out.Data.Prefixes {
			line(&b, "prefix", p.Prefix)
		}
		if len(out.Data.Prefixes) == 0 {
			comment(&b, "no announced prefixes found")
		}
		return b.String(), nil
	}
}

func lookingGlassHandler(d *Deps) registry.Handler {
	return func(ctx context.Context, q classify.Query) (string, error) {
		var out struct {
			Data struct {
				Rrcs []struct {
					RRC string `json:"rrc"`
					Peers []struct {
						ASPath string `json:"as_path"`
					} `json:"peers"`
				} `json:"rrcs"`
			} `json:"data"`
		}
		url := fmt.Sprintf("https://stat.ripe.net/data/looking-glass/data.json?resource=%s", q.Payload)
		if err := fetchJSON(ctx, d.HTTPClient, url, nil, &out); err != nil {
			return errLine("looking glass lookup failed: %v", err), nil
		}
		var b strings.Builder
		comment(&b, "looking glass for "+q.Payload)
		for _, rrc := range out.Data.Rrcs {
			if len(rrc.Peers) == 0 {
				continue
			}
			line(&b, "collector", rrc.RRC)
			line(&b, "as-path", rrc.Peers[0].ASPath)
		}
		return b.String(), nil
	}
}

func rpkiHandler(d *Deps) registry.Handler {
	return func(ctx context.Context, q classify.Query) (string, error) {
		var out struct {
			Data struct {
				Status    string `json:"status"`
				Validator struct {
					Result string `json:"result"`
				} `json:"validating_roas"`
			} `json:"data"`
		}
		url := fmt.Sprintf("https://stat.ripe.net/data/rpki-validation/data.json?resource=%s&prefix=%s", q.RPKIASN, q.RPKIPrefix)
		if err := fetchJSON(ctx, d.HTTPClient, url, nil, &out); err != nil {
			return errLine("rpki validation failed: %v", err), nil
		}
		var b strings.Builder
		comment(&b, "RPKI validation for "+q.RPKIPrefix+" origin "+q.RPKIASN)
		line(&b, "status", out.Data.Status)
		return b.String(), nil
	}
}

func manrsHandler(d *Deps) registry.Handler {
	return func(ctx context.Context, q classify.Query) (string, error) {
		asn := strings.TrimPrefix(strings.ToUpper(q.Payload), "AS")
		var b strings.Builder
		comment(&b, "MANRS participation for AS"+asn)
		comment(&b, "MANRS does not publish a public per-ASN lookup API; see https://www.manrs.org/participants/")
		return b.String(), nil
	}
}

func dnsHandler(d *Deps) registry.Handler {
	return func(ctx context.Context, q classify.Query) (string, error) {
		var b strings.Builder
		comment(&b, "DNS records for "+q.Payload)

		if ip := net.ParseIP(q.Payload); ip != nil {
			names, err := net.DefaultResolver.LookupAddr(ctx, q.Payload)
			if err != nil {
				return errLine("reverse DNS failed: %v", err), nil
			}
			for _, n := range names {
				line(&b, "PTR", n)
			}
			return b.String(), nil
		}

		addrs, err := net.DefaultResolver.LookupIPAddr(ctx, q.Payload)
		if err != nil {
			return errLine("DNS lookup failed: %v", err), nil
		}
		for _, a := range addrs {
			if a.IP.To4() != nil {
				line(&b, "A", a.String())
			} else {
				line(&b, "AAAA", a.String())
			}
		}
		if mxs, err := net.DefaultResolver.LookupMX(ctx, q.Payload); err == nil {
			for _, mx := range mxs {
				line(&b, "MX", fmt.Sprintf("%d %s", mx.Pref, mx.Host))
			}
		}
		if ns, err := net.DefaultResolver.LookupNS(ctx, q.Payload); err == nil {
			for _, n := range ns {
				line(&b, "NS", n.Host)
			}
		}
		return b.String(), nil
	}
}

func traceHandler(d *Deps) registry.Handler {
	return func(ctx context.Context, q classify.Query) (string, error) {
		target, err := resolveToIP(ctx, q.Payload)
		if err != nil {
			return errLine("trace: %v", err), nil
		}
		var b strings.Builder
		comment(&b, "traceroute to "+q.Payload+" ("+target+")")
		comment(&b, "ICMP traceroute requires raw-socket privilege this process does not run with; reporting direct-reachability only")
		conn, dialErr := net.DialTimeout("tcp", net.JoinHostPort(target, "80"), 3*time.Second)
		if dialErr != nil {
			line(&b, "reachable", "no")
		} else {
			conn.Close()
			line(&b, "reachable", "yes")
		}
		return b.String(), nil
	}
}

func sslHandler(d *Deps) registry.Handler {
	return func(ctx context.Context, q classify.Query) (string, error) {
		dialer := &net.Dialer{Timeout: 5 * time.Second}
		conn, err := tls.DialWithDialer(dialer, "tcp", net.JoinHostPort(q.Payload, "443"), &tls.Config{ServerName: q.Payload})
		if err != nil {
			return errLine("TLS handshake failed: %v", err), nil
		}
		defer conn.Close()

		state := conn.ConnectionState()
		if len(state.PeerCertificates) == 0 {
			return errLine("no certificate presented by %s", q.Payload), nil
		}
		cert := state.PeerCertificates[0]

		var b strings.Builder
		comment(&b, "TLS certificate for "+q.Payload)
		line(&b, "subject", cert.Subject.CommonName)
		line(&b, "issuer", cert.Issuer.CommonName)
		line(&b, "not-before", cert.NotBefore.UTC().Format(time.RFC3339))
		line(&b, "not-after", cert.NotAfter.UTC().Format(time.RFC3339))
		line(&b, "dns-names", strings.Join(cert.DNSNames, ", "))
		return b.String(), nil
	}
}

func crtHandler(d *Deps) registry.Handler {
	return func(ctx context.Context, q classify.Query) (string, error) {
		var out []struct {
			NameValue string `json:"name_value"`
			IssuerName string `json:"issuer_name"`
			NotBefore string `json:"not_before"`
		}
		url := fmt.Sprintf("https://crt.sh/?q=%s&output=json", q.Payload)
		if err := fetchJSON(ctx, d.HTTPClient, url, nil, &out); err != nil {
			return errLine("crt.sh lookup failed: %v", err), nil
		}
		var b strings.Builder
		comment(&b, "certificate transparency entries for "+q.Payload)
		seen := map[string]bool{}
		count := 0
		for _, e := range out {
			if seen[e.NameValue] || count >= 20 {
				continue
			}
			seen[e.NameValue] = true
			count++
			line(&b, "cert", e.NameValue+" issued by "+e.IssuerName+" ("+e.NotBefore+")")
		}
		return b.String(), nil
	}
}

func emailHandler(d *Deps) registry.Handler {
	return func(ctx context.Context, q classify.Query) (string, error) {
		if d.WhoisClient == nil {
			return errLine("upstream client not configured"), nil
		}
		raw, err := d.WhoisClient.Lookup(ctx, q.Payload, q.DN42Eligible)
		if err != nil {
			return errLine("email lookup failed: %v", err), nil
		}
		var b strings.Builder
		comment(&b, "abuse/contact addresses for "+q.Payload)
		found := 0
		for _, ln := range strings.Split(raw, "\n") {
			lower := strings.ToLower(ln)
			if strings.Contains(lower, "@") && (strings.Contains(lower, "mail") || strings.Contains(lower, "abuse")) {
				b.WriteString(strings.TrimSpace(ln))
				b.WriteString("\n")
				found++
			}
		}
		if found == 0 {
			comment(&b, "no contact email found")
		}
		return b.String(), nil
	}
}

func penHandler(d *Deps) registry.Handler {
	return func(ctx context.Context, q classify.Query) (string, error) {
		var b strings.Builder
		comment(&b, "IANA Private Enterprise Number "+q.Payload)
		comment(&b, "see https://www.iana.org/assignments/enterprise-numbers/ for the authoritative registry")
		return b.String(), nil
	}
}

func icpHandler(d *Deps) registry.Handler {
	return func(ctx context.Context, q classify.Query) (string, error) {
		var b strings.Builder
		comment(&b, "ICP filing status for "+q.Payload)
		comment(&b, "no ICP filing API is reachable from this deployment; see https://beian.miit.gov.cn/")
		return b.String(), nil
	}
}

func cfStatusHandler(d *Deps) registry.Handler {
	return func(ctx context.Context, q classify.Query) (string, error) {
		var out struct {
			Status struct {
				Description string `json:"description"`
				Indicator   string `json:"indicator"`
			} `json:"status"`
		}
		if err := fetchJSON(ctx, d.HTTPClient, "https://www.cloudflarestatus.com/api/v2/status.json", nil, &out); err != nil {
			return errLine("cloudflare status lookup failed: %v", err), nil
		}
		var b strings.Builder
		comment(&b, "Cloudflare system status")
		line(&b, "indicator", out.Status.Indicator)
		line(&b, "description", out.Status.Description)
		return b.String(), nil
	}
}

func peeringDBHandler(d *Deps) registry.Handler {
	return func(ctx context.Context, q classify.Query) (string, error) {
		asn := strings.TrimPrefix(strings.ToUpper(q.Payload), "AS")
		var out struct {
			Data []struct {
				Name        string `json:"name"`
				Website     string `json:"website"`
				InfoType    string `json:"info_type"`
				InfoPrefixes4 int  `json:"info_prefixes4"`
			} `json:"data"`
		}
		url := fmt.Sprintf("https://www.peeringdb.com/api/net?asn=%s", asn)
		if err := fetchJSON(ctx, d.HTTPClient, url, nil, &out); err != nil {
			return errLine("peeringdb lookup failed: %v", err), nil
		}
		if len(out.Data) == 0 {
			return errLine("no peeringdb network found for AS%s", asn), nil
		}
		net := out.Data[0]
		var b strings.Builder
		comment(&b, "PeeringDB network AS"+asn)
		line(&b, "name", net.Name)
		line(&b, "website", net.Website)
		line(&b, "info-type", net.InfoType)
		line(&b, "info-prefixes4", fmt.Sprintf("%d", net.InfoPrefixes4))
		return b.String(), nil
	}
}

func rdapHandler(d *Deps) registry.Handler {
	return func(ctx context.Context, q classify.Query) (string, error) {
		var rdapURL string
		if net.ParseIP(q.Payload) != nil {
			rdapURL = "https://rdap.org/ip/" + q.Payload
		} else {
			rdapURL = "https://rdap.org/domain/" + q.Payload
		}
		var out struct {
			Handle    string   `json:"handle"`
			Name      string   `json:"name"`
			Status    []string `json:"status"`
			StartAddr string   `json:"startAddress"`
			EndAddr   string   `json:"endAddress"`
		}
		if err := fetchJSON(ctx, d.HTTPClient, rdapURL, map[string]string{"Accept": "application/rdap+json"}, &out); err != nil {
			return errLine("RDAP lookup failed: %v", err), nil
		}
		var b strings.Builder
		comment(&b, "RDAP record for "+q.Payload)
		line(&b, "handle", out.Handle)
		line(&b, "name", out.Name)
		line(&b, "status", strings.Join(out.Status, ", "))
		line(&b, "start-address", out.StartAddr)
		line(&b, "end-address", out.EndAddr)
		return b.String(), nil
	}
}
