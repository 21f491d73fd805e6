package ecommerce

import (
	"bytes"
	"crypto/hmac"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/erp/commercesync/internal/domain/integration"
)

// MomoSignatureField is the body field carrying the delivery signature
const MomoSignatureField = "signature"

var (
	// ErrMomoPayloadNotObject is returned when a body cannot be canonicalized
	ErrMomoPayloadNotObject = errors.New("momo: payload is not a JSON object")
	// ErrMomoPayloadNotUTF8 is returned for bodies whose text would be altered by decoding
	ErrMomoPayloadNotUTF8 = errors.New("momo: payload is not valid UTF-8")
)

// MomoScheme signs hex(HMAC-SHA256(secret, canonical JSON without "signature")).
// Canonical JSON sorts object keys at every level, keeps numbers as delivered
// and does not escape HTML characters.
type MomoScheme struct{}

// Platform returns PlatformMomo
func (MomoScheme) Platform() integration.Platform {
	return integration.PlatformMomo
}

// SignatureFrom reads the signature field of the body
func (MomoScheme) SignatureFrom(_ http.Header, body []byte) string {
	var envelope struct {
		Signature string `json:"signature"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ""
	}
	return strings.TrimSpace(envelope.Signature)
}

// Sign computes the signature of body, ignoring any signature field it carries
func (MomoScheme) Sign(body []byte, secret string) (string, error) {
	canonical, err := MomoCanonicalJSON(body)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(hmacSHA256([]byte(secret), canonical)), nil
}

// Verify compares the hex signature in constant time
func (MomoScheme) Verify(body []byte, signature, secret string) bool {
	got, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return false
	}
	canonical, err := MomoCanonicalJSON(body)
	if err != nil {
		return false
	}
	return hmac.Equal(got, hmacSHA256([]byte(secret), canonical))
}

// MomoCanonicalJSON returns the signed form of a momo body
func MomoCanonicalJSON(body []byte) ([]byte, error) {
	payload, err := decodeMomoObject(body)
	if err != nil {
		return nil, err
	}
	delete(payload, MomoSignatureField)
	return encodeCanonical(payload)
}

// decodeMomoObject rejects any body that two distinct byte sequences could
// canonicalize to: invalid UTF-8, unpaired surrogate escapes and trailing data.
func decodeMomoObject(body []byte) (map[string]any, error) {
	if !utf8.Valid(body) || hasLoneSurrogate(body) {
		return nil, ErrMomoPayloadNotUTF8
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, ErrMomoPayloadNotObject
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, ErrMomoPayloadNotObject
	}
	return payload, nil
}

// hasLoneSurrogate reports whether a \u escape inside a JSON string encodes
// half of a surrogate pair without its partner. encoding/json replaces those
// with U+FFFD.
func hasLoneSurrogate(body []byte) bool {
	for i := 0; i < len(body); i++ {
		if body[i] != '\\' {
			continue
		}
		if i+1 < len(body) && body[i+1] != 'u' {
			i++
			continue
		}
		r, ok := escapedRune(body, i)
		if !ok {
			continue
		}
		switch {
		case utf16.IsSurrogate(r) && r < 0xDC00:
			low, ok := escapedRune(body, i+6)
			if !ok || low < 0xDC00 || low > 0xDFFF {
				return true
			}
			i += 11
		case utf16.IsSurrogate(r):
			return true
		default:
			i += 5
		}
	}
	return false
}

// escapedRune decodes the \uXXXX escape starting at body[i]
func escapedRune(body []byte, i int) (rune, bool) {
	if i+6 > len(body) || body[i] != '\\' || body[i+1] != 'u' {
		return 0, false
	}
	n, err := strconv.ParseUint(string(body[i+2:i+6]), 16, 32)
	if err != nil {
		return 0, false
	}
	return rune(n), true
}

// encodeCanonical relies on encoding/json writing map keys in sorted order
func encodeCanonical(v map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
