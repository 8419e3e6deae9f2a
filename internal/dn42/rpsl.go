package dn42

import (
	"bufio"
	"fmt"
	"strings"
)

// ParseRPSL parses one RPSL object's text body into a Record. Lines
// starting with whitespace continue the previous attribute's value
// (RPSL's line-folding convention); lines starting with '#' or '%' are
// comments. The object's type and primary key are taken from its first
// attribute.
func ParseRPSL(body []byte) (*Record, error) {
	scanner := bufio.NewScanner(strings.NewReader(string(body)))
	var attrs []Attr

	for scanner.Scan() {
		raw := scanner.Text()
		if strings.TrimSpace(raw) == "" {
			continue
		}
		if strings.HasPrefix(raw, "#") || strings.HasPrefix(raw, "%") {
			continue
		}
		if raw[0] == ' ' || raw[0] == '\t' || raw[0] == '+' {
			if len(attrs) == 0 {
				continue // malformed leading continuation; ignore rather than fail
			}
			cont := strings.TrimSpace(strings.TrimPrefix(raw, "+"))
			attrs[len(attrs)-1].Value = strings.TrimRight(attrs[len(attrs)-1].Value, " ") + " " + cont
			continue
		}

		name, value, ok := strings.Cut(raw, ":")
		if !ok {
			return nil, fmt.Errorf("dn42: malformed RPSL line %q", raw)
		}
		attrs = append(attrs, Attr{Name: strings.TrimSpace(name), Value: strings.TrimSpace(value)})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("dn42: scan RPSL body: %w", err)
	}
	if len(attrs) == 0 {
		return nil, fmt.Errorf("dn42: empty RPSL object")
	}

	return &Record{
		ObjectType: attrs[0].Name,
		Key:        attrs[0].Value,
		Attrs:      attrs,
	}, nil
}
