package goPubtkt

const upperHex = "0123456789ABCDEF"

// Escape percent-encodes s for use as a single query parameter value, such
// as the back URL in a login redirect. Only ASCII letters, digits and
// "-_.~" pass through; every other byte becomes %XX with uppercase hex. The
// result decodes back to s with url.QueryUnescape or url.PathUnescape.
func Escape(s string) string {
	n := 0
	for i := 0; i < len(s); i++ {
		if !unreserved(s[i]) {
			n++
		}
	}
	if n == 0 {
		return s
	}

	out := make([]byte, 0, len(s)+2*n)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if unreserved(c) {
			out = append(out, c)
			continue
		}
		out = append(out, '%', upperHex[c>>4], upperHex[c&0x0f])
	}
	return string(out)
}

func unreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	case c == '-' || c == '_' || c == '.' || c == '~':
		return true
	}
	return false
}
