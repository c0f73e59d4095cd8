// Package codec turns JSON-serialisable values into strings suitable for the
// backing store and back.
//
// The transform is obfuscation only: JSON text is URI-component escaped and
// then base64 encoded. It deters casual inspection of stored data and provides
// no confidentiality. Anyone with the stored string can recover the value.
package codec

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"strconv"
	"unicode/utf16"
)

// Marshal renders v as compact JSON text without HTML escaping, so that the
// text (and therefore its checksum) matches what a browser's JSON.stringify
// would produce for the same value.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Obfuscate serialises v and applies the reversible text transform.
// It returns false when v cannot be serialised; it never panics.
func Obfuscate(v any) (s string, ok bool) {
	defer func() {
		if recover() != nil {
			s, ok = "", false
		}
	}()

	data, err := Marshal(v)
	if err != nil {
		return "", false
	}
	return base64.StdEncoding.EncodeToString([]byte(escapeComponent(data))), true
}

// Deobfuscate reverses Obfuscate into v. Any failure (bad base64, bad escape
// sequence, invalid JSON) returns false and leaves the caller to substitute a
// default.
func Deobfuscate(s string, v any) bool {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return false
	}
	data, ok := unescapeComponent(raw)
	if !ok {
		return false
	}
	return json.Unmarshal(data, v) == nil
}

// Checksum returns a short, deterministic, order-sensitive hash of v's JSON
// text. It is a corruption hint, not a cryptographic digest. Equal values
// always produce equal checksums. Values that cannot be serialised hash to "".
func Checksum(v any) string {
	data, err := Marshal(v)
	if err != nil {
		return ""
	}
	return checksumText(string(data))
}

// Verify reports whether sum is the checksum of v.
func Verify(v any, sum string) bool {
	return Checksum(v) == sum
}

// checksumText is the 32-bit h*31+c rolling hash over UTF-16 code units,
// rendered as the absolute value in base 36.
func checksumText(s string) string {
	var h int32
	for _, c := range utf16.Encode([]rune(s)) {
		h = (h << 5) - h + int32(c)
	}
	n := int64(h)
	if n < 0 {
		n = -n
	}
	return strconv.FormatInt(n, 36)
}
