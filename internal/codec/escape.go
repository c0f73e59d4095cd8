package codec

import "unicode/utf8"

const upperhex = "0123456789ABCDEF"

// unreserved reports whether c passes through component escaping untouched.
func unreserved(c byte) bool {
	switch {
	case 'A' <= c && c <= 'Z', 'a' <= c && c <= 'z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}

// escapeComponent percent-encodes every UTF-8 byte outside the unreserved set.
// Unlike url.QueryEscape it keeps spaces as %20 and leaves !'()* alone.
func escapeComponent(b []byte) string {
	n := 0
	for _, c := range b {
		if !unreserved(c) {
			n++
		}
	}
	if n == 0 {
		return string(b)
	}

	out := make([]byte, 0, len(b)+2*n)
	for _, c := range b {
		if unreserved(c) {
			out = append(out, c)
			continue
		}
		out = append(out, '%', upperhex[c>>4], upperhex[c&15])
	}
	return string(out)
}

// unescapeComponent decodes %XX sequences. Truncated or non-hex sequences and
// results that are not valid UTF-8 are rejected.
func unescapeComponent(b []byte) ([]byte, bool) {
	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); i++ {
		if b[i] != '%' {
			out = append(out, b[i])
			continue
		}
		if i+2 >= len(b) {
			return nil, false
		}
		hi, ok1 := unhex(b[i+1])
		lo, ok2 := unhex(b[i+2])
		if !ok1 || !ok2 {
			return nil, false
		}
		out = append(out, hi<<4|lo)
		i += 2
	}
	if !utf8.Valid(out) {
		return nil, false
	}
	return out, true
}

func unhex(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
