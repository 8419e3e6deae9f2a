package dn42

import (
	"math/big"
	"net/netip"
	"strings"
)

// addrRange is an inclusive [lo, hi] address range, used to model both
// CIDR prefixes and DN42's explicit "a.b.c.d - w.x.y.z" inetnum ranges
// under one representation.
type addrRange struct {
	lo, hi netip.Addr
}

func compareAddr(a, b netip.Addr) int {
	if a == b {
		return 0
	}
	if a.Less(b) {
		return -1
	}
	return 1
}

func (r addrRange) contains(a netip.Addr) bool {
	return compareAddr(a, r.lo) >= 0 && compareAddr(a, r.hi) <= 0
}

// span returns the number of addresses the range covers. Used to rank
// matches by specificity: a smaller span is a more specific (longer
// prefix, or tighter explicit range) match, per spec.md §4.4's
// "most-specific covering range, ties broken by longer prefix".
func (r addrRange) span() *big.Int {
	lo := new(big.Int).SetBytes(r.lo.AsSlice())
	hi := new(big.Int).SetBytes(r.hi.AsSlice())
	diff := new(big.Int).Sub(hi, lo)
	return diff.Add(diff, big.NewInt(1))
}

func lastAddrOf(p netip.Prefix) netip.Addr {
	base := p.Masked().Addr()
	bytes := append([]byte(nil), base.AsSlice()...)
	totalBits := len(bytes) * 8
	for i := p.Bits(); i < totalBits; i++ {
		bytes[i/8] |= 1 << (7 - uint(i%8))
	}
	last, ok := netip.AddrFromSlice(bytes)
	if !ok {
		return base
	}
	if base.Is4() {
		last = last.Unmap()
	}
	return last
}

// parseRangeOrCIDR accepts either CIDR notation ("10.0.0.0/8") or DN42's
// explicit range notation ("172.20.0.0 - 172.20.255.255").
func parseRangeOrCIDR(s string) (addrRange, error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, "/") {
		p, err := netip.ParsePrefix(s)
		if err != nil {
			return addrRange{}, err
		}
		return addrRange{lo: p.Masked().Addr(), hi: lastAddrOf(p)}, nil
	}
	if lo, hi, ok := strings.Cut(s, "-"); ok {
		loAddr, err := netip.ParseAddr(strings.TrimSpace(lo))
		if err != nil {
			return addrRange{}, err
		}
		hiAddr, err := netip.ParseAddr(strings.TrimSpace(hi))
		if err != nil {
			return addrRange{}, err
		}
		return addrRange{lo: loAddr, hi: hiAddr}, nil
	}
	a, err := netip.ParseAddr(s)
	if err != nil {
		return addrRange{}, err
	}
	return addrRange{lo: a, hi: a}, nil
}

type rangeEntry struct {
	rng    addrRange
	record *Record
}

// Index is the queryable form of a DN42 mirror snapshot: by-identifier, by-
// ASN, and by-IP-range(v4/v6) lookup tables, per spec.md §4.4. An Index is
// immutable once built; Manager swaps the active Index atomically.
type Index struct {
	byID  map[string]*Record // "objectType:key" (upper-cased key)
	byASN map[string]*Record // upper-cased ASN, e.g. "AS4242420000"
	v4    []rangeEntry
	v6    []rangeEntry
}

// NewIndex builds an Index from records. Records whose key doesn't parse
// as an address/ASN/range for their object type are still indexed by ID,
// just not by range or ASN.
func NewIndex(records []*Record) *Index {
	idx := &Index{
		byID:  make(map[string]*Record, len(records)),
		byASN: make(map[string]*Record),
	}
	for _, r := range records {
		idx.byID[idKey(r.ObjectType, r.Key)] = r

		switch strings.ToLower(r.ObjectType) {
		case "aut-num":
			idx.byASN[strings.ToUpper(strings.TrimSpace(r.Key))] = r
		case "inetnum", "route":
			if rng, err := parseRangeOrCIDR(r.Key); err == nil {
				idx.v4 = append(idx.v4, rangeEntry{rng: rng, record: r})
			}
		case "inet6num", "route6":
			if rng, err := parseRangeOrCIDR(r.Key); err == nil {
				idx.v6 = append(idx.v6, rangeEntry{rng: rng, record: r})
			}
		}
	}
	return idx
}

func idKey(objectType, key string) string {
	return strings.ToLower(strings.TrimSpace(objectType)) + ":" + strings.ToUpper(strings.TrimSpace(key))
}

// LookupID returns the record for an exact (objectType, key) pair.
func (idx *Index) LookupID(objectType, key string) (*Record, bool) {
	if idx == nil {
		return nil, false
	}
	r, ok := idx.byID[idKey(objectType, key)]
	return r, ok
}

// LookupASN returns the aut-num record for asn (e.g. "AS4242420000").
func (idx *Index) LookupASN(asn string) (*Record, bool) {
	if idx == nil {
		return nil, false
	}
	r, ok := idx.byASN[strings.ToUpper(strings.TrimSpace(asn))]
	return r, ok
}

// LookupIP returns the most-specific range record covering addr.
func (idx *Index) LookupIP(addr netip.Addr) (*Record, bool) {
	if idx == nil {
		return nil, false
	}
	entries := idx.v4
	if addr.Is6() && !addr.Is4In6() {
		entries = idx.v6
	}

	var best *rangeEntry
	var bestSpan *big.Int
	for i := range entries {
		if !entries[i].rng.contains(addr) {
			continue
		}
		sp := entries[i].rng.span()
		if best == nil || sp.Cmp(bestSpan) < 0 {
			best = &entries[i]
			bestSpan = sp
		}
	}
	if best == nil {
		return nil, false
	}
	return best.record, true
}
