package coapmsg

import "bytes"

// CacheEquivalent reports whether m and other carry the same Code and,
// for every option number that is not a no-cache-key option, the same
// ordered sequence of values (RFC 7252 section 5.6). It does not compare
// endpoints - callers that need the full cache key defined in spec.md
// section 3 must additionally compare the endpoint the messages arrived
// on or are destined for.
func (m *Message) CacheEquivalent(other *Message) bool {
	if m.Code != other.Code {
		return false
	}

	a, b := m.Options(), other.Options()
	ids := map[OptionId]struct{}{}
	for id := range a {
		ids[id] = struct{}{}
	}
	for id := range b {
		ids[id] = struct{}{}
	}

	for id := range ids {
		if id.NoCacheKey() {
			continue
		}
		av, bv := a[id].values, b[id].values
		if len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !bytes.Equal(av[i].AsBytes(), bv[i].AsBytes()) {
				return false
			}
		}
	}
	return true
}
