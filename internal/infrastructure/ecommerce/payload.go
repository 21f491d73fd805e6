package ecommerce

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/erp/commercesync/internal/domain/integration"
)

// ---------------------------------------------------------------------------
// Shared payload helpers
// ---------------------------------------------------------------------------

// FlexibleID decodes an identifier delivered either as a JSON string or number
type FlexibleID string

// UnmarshalJSON implements json.Unmarshaler
func (id *FlexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = FlexibleID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = FlexibleID(n.String())
	return nil
}

// String returns the identifier as a string
func (id FlexibleID) String() string {
	return string(id)
}

// errPayloadNotObject is wrapped into Malformed errors for non-object bodies
var errPayloadNotObject = errors.New("top-level value is not a JSON object")

// decodeEnvelope decodes a JSON object body into envelope. When the typed
// decode fails, the first non-empty shopFields value is still read from the
// body so the failure can be attributed to a shop.
func decodeEnvelope(platform integration.Platform, body []byte, envelope any, shopFields ...string) *integration.NormalizationError {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		var v any
		if err := json.Unmarshal(trimmed, &v); err != nil {
			return integration.NewMalformedError(platform, err)
		}
		return integration.NewMalformedError(platform, errPayloadNotObject)
	}
	if err := json.Unmarshal(body, envelope); err != nil {
		ne := integration.NewMalformedError(platform, err)
		ne.ShopID = lenientShopID(body, shopFields...)
		return ne
	}
	return nil
}

// lenientShopID reads the first decodable, non-empty identifier among fields
func lenientShopID(body []byte, fields ...string) string {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil {
		return ""
	}
	for _, field := range fields {
		raw, ok := top[field]
		if !ok {
			continue
		}
		var id FlexibleID
		if err := json.Unmarshal(raw, &id); err == nil && id != "" {
			return id.String()
		}
	}
	return ""
}

// eventMapping is one row of a platform lookup table
type eventMapping struct {
	Kind   integration.EventKind
	Action string
	// Operation qualifies product events
	Operation string
}

// unknownMapping is used for codes missing from a lookup table
var unknownMapping = eventMapping{
	Kind:   integration.EventKindUnknown,
	Action: integration.ActionUnknownEvent,
}

// firstNonEmpty returns the first non-empty value
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// parseTimestamp accepts unix seconds, unix milliseconds or RFC3339.
// It returns fallback when raw is empty or unparseable.
func parseTimestamp(raw string, fallback time.Time) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return unixTime(n, fallback)
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.UTC()
	}
	return fallback
}

func unixTime(n int64, fallback time.Time) time.Time {
	switch {
	case n <= 0:
		return fallback
	case n > 1e12:
		return time.UnixMilli(n).UTC()
	default:
		return time.Unix(n, 0).UTC()
	}
}

// derivedEventID joins the identifying fields of a delivery. When no entity
// identifies the event, a digest of the body keeps unrelated deliveries apart
// while redeliveries of the same bytes still collide.
func derivedEventID(shopID, code, entityID, timestamp string, body []byte) string {
	if entityID == "" {
		sum := sha256.Sum256(body)
		entityID = "body-" + hex.EncodeToString(sum[:8])
	}
	return strings.Join([]string{shopID, code, entityID, timestamp}, ":")
}

// receivedAt returns the receipt time of the request, or now
func receivedAt(req integration.WebhookRequest) time.Time {
	if req.ReceivedAt.IsZero() {
		return time.Now().UTC()
	}
	return req.ReceivedAt.UTC()
}
