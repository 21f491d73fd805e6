package integration

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewArchivedPayload(t *testing.T) {
	h := http.Header{}
	h.Set("X-Shopline-Topic", "orders/paid")
	h.Add("X-Forwarded-For", "10.0.0.1")
	h.Add("X-Forwarded-For", "10.0.0.2")

	received := time.Date(2024, 3, 5, 18, 30, 0, 0, time.FixedZone("UTC+8", 8*3600))
	p := NewArchivedPayload(WebhookRequest{
		Platform:   PlatformShopline,
		Body:       []byte(`{"id":"evt-1"}`),
		Headers:    h,
		ReceivedAt: received,
	}, VerifyOutcomeVerified, "req-1")

	assert.Equal(t, PlatformShopline, p.Platform)
	assert.Equal(t, "orders/paid", p.Headers["X-Shopline-Topic"])
	assert.Equal(t, "10.0.0.1", p.Headers["X-Forwarded-For"])
	assert.Equal(t, time.UTC, p.ReceivedAt.Location())
	assert.True(t, p.ReceivedAt.Equal(received))
}

func TestArchivedPayload_ObjectKey(t *testing.T) {
	at := time.Date(2024, 3, 5, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name      string
		requestID string
		want      string
	}{
		{name: "with request id", requestID: "req-1", want: "momo/2024/03/05/1709634600000000000-req-1.json"},
		{name: "without request id", want: "momo/2024/03/05/1709634600000000000.json"},
		{name: "slashes are replaced", requestID: "a/b", want: "momo/2024/03/05/1709634600000000000-a_b.json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ArchivedPayload{Platform: PlatformMomo, ReceivedAt: at, RequestID: tt.requestID}
			assert.Equal(t, tt.want, p.ObjectKey())
		})
	}
}
