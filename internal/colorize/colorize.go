// Package colorize applies ANSI color schemes to WHOIS responses, per
// spec.md §6's X-WHOIS-COLOR negotiation. Two schemes are supported: "ripe"
// (keys in cyan, values left plain, a muted style for comment lines) and
// "bgptools" (keys in yellow, IP/ASN/prefix-looking values in green).
//
// github.com/fatih/color is named in two pack go.mod files (vjache-cie,
// and an other_examples manifest) but neither repo's source actually calls
// it; this package is the first concrete consumer in the corpus, rewritten
// from scratch for WHOIS-shaped key/value text using the package's
// standard color.New(attrs...).Sprint idiom.
package colorize

import (
	"bufio"
	"strings"

	"github.com/fatih/color"
)

// Scheme names a supported negotiated colorization profile.
type Scheme string

const (
	SchemeNone     Scheme = ""
	SchemeRIPE     Scheme = "ripe"
	SchemeBGPTools Scheme = "bgptools"
)

// ParseScheme validates a negotiated X-WHOIS-COLOR scheme name.
func ParseScheme(s string) (Scheme, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ripe":
		return SchemeRIPE, true
	case "bgptools":
		return SchemeBGPTools, true
	default:
		return SchemeNone, false
	}
}

// Capabilities is the line returned for an X-WHOIS-COLOR-PROBE request.
const Capabilities = "% color-schemes: ripe, bgptools\n"

var (
	ripeKey     = color.New(color.FgCyan, color.Bold)
	ripeComment = color.New(color.FgHiBlack)

	bgpKey   = color.New(color.FgYellow, color.Bold)
	bgpValue = color.New(color.FgGreen)
)

// Apply colorizes response per scheme. It is a no-op for SchemeNone. Per
// spec.md §9 (patch-before-color), this always runs after patch.Apply so
// patch rules never have to account for embedded ANSI escapes.
func Apply(response string, scheme Scheme) string {
	switch scheme {
	case SchemeRIPE:
		return applyLineWise(response, colorizeRIPELine)
	case SchemeBGPTools:
		return applyLineWise(response, colorizeBGPToolsLine)
	default:
		return response
	}
}

func applyLineWise(response string, colorLine func(string) string) string {
	var b strings.Builder
	scanner := bufio.NewScanner(strings.NewReader(response))
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	first := true
	for scanner.Scan() {
		if !first {
			b.WriteByte('\n')
		}
		first = false
		b.WriteString(colorLine(scanner.Text()))
	}
	return b.String()
}

func colorizeRIPELine(line string) string {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return line
	}
	if strings.HasPrefix(trimmed, "%") {
		return ripeComment.Sprint(line)
	}
	key, value, ok := strings.Cut(line, ":")
	if !ok {
		return line
	}
	return ripeKey.Sprint(key) + ":" + value
}

func colorizeBGPToolsLine(line string) string {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "%") {
		return line
	}
	key, value, ok := strings.Cut(line, ":")
	if !ok {
		return line
	}
	valTrimmed := strings.TrimSpace(value)
	if looksLikeNetworkToken(valTrimmed) {
		return bgpKey.Sprint(key) + ": " + bgpValue.Sprint(valTrimmed)
	}
	return bgpKey.Sprint(key) + ":" + value
}

// looksLikeNetworkToken is a cheap heuristic: does the value look like an
// IP, CIDR, or AS number, the kinds of fields bgp.tools itself highlights.
func looksLikeNetworkToken(s string) bool {
	if s == "" {
		return false
	}
	upper := strings.ToUpper(s)
	if strings.HasPrefix(upper, "AS") {
		return true
	}
	return strings.ContainsAny(s, "0123456789") && (strings.Contains(s, ".") || strings.Contains(s, ":") || strings.Contains(s, "/"))
}
