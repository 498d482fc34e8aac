// Package charset resolves declared feed encodings and transcodes text
// between them and UTF-8.
package charset

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	htmlcharset "golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
)

// ErrUnknownEncoding reports a label that no index recognizes.
var ErrUnknownEncoding = errors.New("unknown character encoding")

// Latin1 is the single-byte encoding sponsor memo lines are reinterpreted in.
var Latin1 encoding.Encoding = charmap.ISO8859_1

// Lookup resolves an encoding label such as "UTF-8", "CP1252" or
// "ISO-8859-1". The WHATWG index is consulted first, then the IANA
// registry, which also knows the IBM code pages.
func Lookup(label string) (encoding.Encoding, error) {
	name := strings.TrimSpace(label)
	if name == "" {
		return nil, fmt.Errorf("%w: empty label", ErrUnknownEncoding)
	}
	if isUTF8(name) {
		return unicode.UTF8, nil
	}
	if enc, _ := htmlcharset.Lookup(name); enc != nil {
		return enc, nil
	}
	if enc, err := ianaindex.IANA.Encoding(aliasFor(name)); err == nil && enc != nil {
		return enc, nil
	}
	if enc, err := ianaindex.MIME.Encoding(name); err == nil && enc != nil {
		return enc, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownEncoding, label)
}

// Canonical returns the IANA name for label, or the trimmed label when no
// name is registered.
func Canonical(label string) string {
	enc, err := Lookup(label)
	if err != nil {
		return strings.TrimSpace(label)
	}
	if name, err := ianaindex.IANA.Name(enc); err == nil && name != "" {
		return name
	}
	return strings.TrimSpace(label)
}

// Decode converts raw bytes in the labelled encoding into a UTF-8 string.
func Decode(raw []byte, label string) (string, error) {
	enc, err := Lookup(label)
	if err != nil {
		return "", err
	}
	out, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", label, err)
	}
	return string(out), nil
}

// Encode converts s into bytes of the labelled encoding. Runes the target
// cannot represent become '?' rather than failing the whole line.
func Encode(s, label string) ([]byte, error) {
	enc, err := Lookup(label)
	if err != nil {
		return nil, err
	}
	encoder := enc.NewEncoder()
	out := make([]byte, 0, len(s))
	var buf [utf8.UTFMax]byte
	for _, r := range s {
		encoded, err := encoder.Bytes(buf[:utf8.EncodeRune(buf[:], r)])
		if err != nil {
			out = append(out, '?')
			continue
		}
		out = append(out, encoded...)
	}
	return out, nil
}

// Reinterpret encodes s with the from encoding and decodes the resulting
// bytes with to. It reproduces text produced upstream by a system that wrote
// one encoding and declared another.
func Reinterpret(s, from string, to encoding.Encoding) (string, error) {
	raw, err := Encode(s, from)
	if err != nil {
		return "", err
	}
	out, err := to.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("reinterpret: %w", err)
	}
	return string(out), nil
}

func isUTF8(name string) bool {
	switch strings.ToLower(strings.ReplaceAll(name, "_", "-")) {
	case "utf-8", "utf8":
		return true
	}
	return false
}

// aliasFor maps the Java-style code page labels found in older feed
// configuration onto their IANA names.
func aliasFor(name string) string {
	upper := strings.ToUpper(name)
	switch {
	case strings.HasPrefix(upper, "CP") && len(upper) > 2:
		code := upper[2:]
		if strings.HasPrefix(code, "12") {
			return "windows-" + code
		}
		return "IBM" + code
	case upper == "LATIN1":
		return "ISO-8859-1"
	}
	return name
}
