// Package classify implements C6, the query classifier: it maps an arbitrary
// input line to a tagged QueryKind plus a canonical payload. Classification
// is total (every non-empty input yields a kind) and, for a fixed handler
// registry snapshot, deterministic — see spec.md §4.6 and §8.
package classify

import (
	"net/netip"
	"sort"
	"strconv"
	"strings"
)

// Kind tags the variant of a classified query, per spec.md §3's tagged
// union. Rather than one constant per suffix tag (the grammar lists ~50),
// most built-in suffixes collapse into KindSuffix carrying the matched Tag;
// the few variants spec.md calls out with their own payload shape (RPKI's
// prefix+ASN pair, package registries, IRR registries) get dedicated kinds.
type Kind int

const (
	KindInvalid Kind = iota
	KindRawDomain
	KindRawIPv4
	KindRawIPv6
	KindRawASN
	KindRawCIDR
	KindHelp
	KindUpdatePatch
	KindReloadPatch
	KindPlugin      // suffix matched a loaded plugin's declared suffix
	KindIRRRegistry // suffix is one of the named routing registries (RADB, RIPE, ...)
	KindPackage     // suffix is a package-registry tag (NPM, PYPI, CARGO, ...)
	KindRPKI        // "<prefix>-AS<number>-RPKI"
	KindSuffix      // any other built-in suffix tag (GEO, BGPTOOL, DNS, SSL, ...)
)

func (k Kind) String() string {
	switch k {
	case KindRawDomain:
		return "Raw.Domain"
	case KindRawIPv4:
		return "Raw.IPv4"
	case KindRawIPv6:
		return "Raw.IPv6"
	case KindRawASN:
		return "Raw.ASN"
	case KindRawCIDR:
		return "Raw.Cidr"
	case KindHelp:
		return "Help"
	case KindUpdatePatch:
		return "UpdatePatch"
	case KindReloadPatch:
		return "ReloadPatch"
	case KindPlugin:
		return "Plugin"
	case KindIRRRegistry:
		return "Irr.Registry"
	case KindPackage:
		return "Package"
	case KindRPKI:
		return "Rpki"
	case KindSuffix:
		return "Suffix"
	default:
		return "Invalid"
	}
}

// Query is the classifier's output: a Kind plus its canonical payload.
type Query struct {
	Kind Kind

	// Raw is the trimmed, unmodified input that was classified.
	Raw string

	// Payload is the canonical, normalized argument: lower-cased domain,
	// upper-cased ASN, the text preceding a matched suffix, etc.
	Payload string

	// Tag is the matched suffix, upper-cased and without its leading '-',
	// for KindSuffix, KindIRRRegistry and KindPlugin. For KindPackage it is
	// the lower-case registry key instead (e.g. "npm").
	Tag string

	// RPKIPrefix and RPKIASN are populated only for KindRPKI.
	RPKIPrefix string
	RPKIASN    string

	// DN42Eligible is true when the payload independently matches one of
	// the DN42 auto-detect rules (spec.md §4.6 step 4), regardless of which
	// step actually produced the Kind. C8/C5 use this to decide whether to
	// consult C4 before or instead of the public upstream.
	DN42Eligible bool
}

// suffixEntry is one row of the built-in suffix grammar (spec.md §6).
type suffixEntry struct {
	tag      string // upper-case, without leading '-'
	kind     Kind
	registry string // lower-case registry key, populated for KindPackage
}

// builtinSuffixes is every tag from spec.md §6's grammar table except RPKI,
// which needs bespoke parsing (it isn't a plain suffix strip: the ASN is
// embedded between the prefix and the "-RPKI" tail).
var builtinSuffixes = buildSuffixTable()

func buildSuffixTable() []suffixEntry {
	irr := []string{"RADB", "ALTDB", "AFRINIC", "APNIC", "ARIN", "BELL", "JPIRR", "LACNIC", "LEVEL3", "NTTCOM", "RIPE", "TC"}
	pkg := map[string]string{
		"CARGO": "cargo", "NPM": "npm", "PYPI": "pypi", "AUR": "aur",
		"DEBIAN": "debian", "UBUNTU": "ubuntu", "NIXOS": "nixos",
		"OPENSUSE": "opensuse", "AOSC": "aosc", "EPEL": "epel", "ALMA": "alma",
		"OPENWRT": "openwrt", "MODRINTH": "modrinth", "CURSEFORGE": "curseforge",
	}
	misc := []string{
		"EMAIL", "GEO", "RIRGEO", "BGPTOOL", "PREFIXES", "IRR", "LG",
		"MANRS", "DNS", "TRACE", "TRACEROUTE", "SSL", "CRT",
		"MC", "MINECRAFT", "MCU",
		"STEAMSEARCH", "STEAM", "IMDBSEARCH", "IMDB",
		"GITHUB", "WIKIPEDIA", "ACGC", "LYRIC", "PIXIV",
		"MEAL-CN", "MEAL", "PEN", "ICP", "CFSTATUS", "PEERINGDB", "RDAP", "DESC",
	}

	var table []suffixEntry
	for _, tag := range irr {
		table = append(table, suffixEntry{tag: tag, kind: KindIRRRegistry})
	}
	for tag, reg := range pkg {
		table = append(table, suffixEntry{tag: tag, kind: KindPackage, registry: reg})
	}
	for _, tag := range misc {
		table = append(table, suffixEntry{tag: tag, kind: KindSuffix})
	}

	// Longest suffix first, so "-STEAMSEARCH" is tried before "-STEAM" and
	// "-IMDBSEARCH" before "-IMDB" — spec.md's suffix longest-match
	// invariant (§8).
	sort.SliceStable(table, func(i, j int) bool {
		return len(table[i].tag) > len(table[j].tag)
	})
	return table
}

var dn42V4Nets = mustParsePrefixes(
	"10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16",
	"100.64.0.0/10", "169.254.0.0/16",
)

var dn42V6Nets = mustParsePrefixes("fc00::/7", "fe80::/10")

func mustParsePrefixes(cidrs ...string) []netip.Prefix {
	out := make([]netip.Prefix, 0, len(cidrs))
	for _, c := range cidrs {
		p, err := netip.ParsePrefix(c)
		if err != nil {
			panic(err)
		}
		out = append(out, p)
	}
	return out
}

// Classify maps a raw input line to a Query. pluginSuffixes are the
// currently-registered plugin suffixes (upper-case, without leading '-'),
// passed in by the caller (C8, reading a C7 snapshot) so classification
// stays a pure function of its inputs.
func Classify(input string, pluginSuffixes []string) Query {
	raw := strings.TrimSpace(strings.Trim(input, "\r\n"))
	if raw == "" {
		return Query{Kind: KindInvalid, Raw: raw}
	}

	trimmed := stripLegacyPrefix(raw)
	upper := strings.ToUpper(trimmed)

	// 1. Special commands.
	switch upper {
	case "HELP":
		return Query{Kind: KindHelp, Raw: raw}
	case "UPDATE-PATCH":
		return Query{Kind: KindUpdatePatch, Raw: raw}
	case "RELOAD-PATCH":
		return Query{Kind: KindReloadPatch, Raw: raw}
	case "LYRIC":
		return Query{Kind: KindSuffix, Raw: raw, Tag: "LYRIC", Payload: ""}
	}

	// 2. Plugin suffixes, longest first (plugin suffixes never collide in
	// length with a silently-ambiguous match: C7 rejects suffix collisions
	// at registration time, so any remaining ties are resolved by length).
	sortedPlugins := append([]string(nil), pluginSuffixes...)
	sort.SliceStable(sortedPlugins, func(i, j int) bool {
		return len(sortedPlugins[i]) > len(sortedPlugins[j])
	})
	for _, tag := range sortedPlugins {
		if payload, ok := stripSuffix(upper, trimmed, tag); ok {
			q := Query{Kind: KindPlugin, Raw: raw, Tag: tag, Payload: normalizePayload(payload)}
			applyDN42Detection(&q)
			return q
		}
	}

	// 3. Built-in suffix table, longest tag first. RPKI is special-cased
	// because its payload format embeds an ASN between the prefix and the
	// "-RPKI" tail (spec.md §6).
	if payload, ok := stripSuffix(upper, trimmed, "RPKI"); ok {
		if q, ok := parseRPKI(raw, payload); ok {
			return q
		}
		// Malformed RPKI payload: the built-in table below has no RPKI
		// entry, so unless another tag matches, the input degrades to the
		// raw classification (typically Raw{Domain}).
	}
	for _, entry := range builtinSuffixes {
		payload, ok := stripSuffix(upper, trimmed, entry.tag)
		if !ok {
			continue
		}
		q := Query{Kind: entry.kind, Raw: raw, Tag: entry.tag, Payload: normalizePayload(payload)}
		if entry.kind == KindPackage {
			q.Tag = entry.registry
		}
		applyDN42Detection(&q)
		return q
	}

	// 4 & 5. DN42 auto-detect and well-formed Raw kinds share one parse.
	return classifyRaw(raw, trimmed)
}

// stripSuffix reports whether upperInput ends in "-"+tag (case-insensitive)
// and, if so, returns the original-case payload preceding it.
func stripSuffix(upperInput, original, tag string) (payload string, ok bool) {
	suffix := "-" + tag
	if !strings.HasSuffix(upperInput, suffix) {
		return "", false
	}
	return original[:len(original)-len(suffix)], true
}

// stripLegacyPrefix removes an optional leading "-h <host> " option some
// legacy WHOIS clients prepend.
func stripLegacyPrefix(s string) string {
	if !strings.HasPrefix(s, "-h ") {
		return s
	}
	rest := strings.TrimPrefix(s, "-h ")
	fields := strings.SplitN(strings.TrimSpace(rest), " ", 2)
	if len(fields) == 2 {
		return strings.TrimSpace(fields[1])
	}
	return s
}

func normalizePayload(s string) string {
	return strings.TrimSpace(s)
}

// parseRPKI parses "<prefix>-AS<number>" into its RPKI fields.
func parseRPKI(raw, payload string) (Query, bool) {
	idx := strings.LastIndex(strings.ToUpper(payload), "-AS")
	if idx < 0 {
		return Query{}, false
	}
	prefix := payload[:idx]
	asnDigits := payload[idx+3:]
	if _, err := strconv.ParseUint(asnDigits, 10, 32); err != nil {
		return Query{}, false
	}
	if _, err := netip.ParsePrefix(prefix); err != nil {
		return Query{}, false
	}
	return Query{
		Kind:       KindRPKI,
		Raw:        raw,
		Payload:    payload,
		RPKIPrefix: prefix,
		RPKIASN:    asnDigits,
	}, true
}

// classifyRaw implements spec.md §4.6 steps 4-6: DN42 auto-detect over the
// unsuffixed input, then well-formed IPv4/IPv6/CIDR/ASN, then Raw{Domain}.
func classifyRaw(raw, trimmed string) Query {
	// ASN, "AS" prefix optional case, decimal digits only.
	if asn, ok := parseASN(trimmed); ok {
		q := Query{Kind: KindRawASN, Raw: raw, Payload: "AS" + strconv.FormatUint(asn, 10)}
		q.DN42Eligible = asn >= 4242420000 && asn <= 4242423999
		return q
	}

	if prefix, err := netip.ParsePrefix(trimmed); err == nil {
		q := Query{Kind: KindRawCIDR, Raw: raw, Payload: prefix.String()}
		q.DN42Eligible = addrIsDN42(prefix.Addr())
		return q
	}

	if addr, err := netip.ParseAddr(trimmed); err == nil {
		q := Query{Raw: raw, Payload: addr.String()}
		if addr.Is4() {
			q.Kind = KindRawIPv4
		} else {
			q.Kind = KindRawIPv6
		}
		q.DN42Eligible = addrIsDN42(addr)
		return q
	}

	domain := strings.ToLower(trimmed)
	q := Query{Kind: KindRawDomain, Raw: raw, Payload: domain}
	q.DN42Eligible = strings.HasSuffix(domain, ".dn42")
	return q
}

// parseASN accepts an optional case-insensitive "AS" prefix followed by
// decimal digits.
func parseASN(s string) (uint64, bool) {
	body := s
	if len(s) > 2 && strings.EqualFold(s[:2], "AS") {
		body = s[2:]
	}
	if body == "" {
		return 0, false
	}
	for _, r := range body {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseUint(body, 10, 32)
	if err != nil {
		return 0, false
	}
	return n, true
}

func addrIsDN42(addr netip.Addr) bool {
	if addr.Is4() {
		for _, p := range dn42V4Nets {
			if p.Contains(addr) {
				return true
			}
		}
		return false
	}
	for _, p := range dn42V6Nets {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// applyDN42Detection re-checks DN42 eligibility for a suffixed query whose
// payload looks like a raw domain/IP/ASN, per spec.md §8's DN42-precedence
// property ("with a handler suffix, the suffix wins" on Kind, but the
// eligibility flag is still reported so C5/C8 can still prefer DN42 data).
func applyDN42Detection(q *Query) {
	trimmed := strings.TrimSpace(q.Payload)
	if trimmed == "" {
		return
	}
	if strings.HasSuffix(strings.ToLower(trimmed), ".dn42") {
		q.DN42Eligible = true
		return
	}
	if _, ok := parseASN(trimmed); ok {
		if asn, _ := parseASN(trimmed); asn >= 4242420000 && asn <= 4242423999 {
			q.DN42Eligible = true
		}
		return
	}
	if addr, err := netip.ParseAddr(trimmed); err == nil {
		q.DN42Eligible = addrIsDN42(addr)
	}
}
