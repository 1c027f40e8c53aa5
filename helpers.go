package nostr

import (
	"golang.org/x/exp/constraints"
)

const hextable = "0123456789abcdef"

// escapeString appends s to dst as a JSON string, escaped according to
// NIP-01 (RFC 8259 with no optional escapes). The event id depends on this
// byte-for-byte, so no general-purpose encoder is used here.
func escapeString(dst []byte, s string) []byte {
	dst = append(dst, '"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"':
			dst = append(dst, '\\', '"')
		case c == '\\':
			dst = append(dst, '\\', '\\')
		case c == '\b':
			dst = append(dst, '\\', 'b')
		case c == '\t':
			dst = append(dst, '\\', 't')
		case c == '\n':
			dst = append(dst, '\\', 'n')
		case c == '\f':
			dst = append(dst, '\\', 'f')
		case c == '\r':
			dst = append(dst, '\\', 'r')
		case c < 0x20:
			dst = append(dst, '\\', 'u', '0', '0', hextable[c>>4], hextable[c&0xf])
		default:
			dst = append(dst, c)
		}
	}
	return append(dst, '"')
}

// similar reports whether two slices contain the same elements regardless
// of order.
func similar[E constraints.Ordered](as, bs []E) bool {
	if len(as) != len(bs) {
		return false
	}

	for _, a := range as {
		for _, b := range bs {
			if b == a {
				goto next
			}
		}
		// didn't find a B that corresponded to the current A
		return false

	next:
		continue
	}

	return true
}
