package webhook

import (
	"context"
	"encoding/base64"
	"net/http"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Barunkrsingh/chat-application/internal/claim"
)

var (
	testSecret = "whsec_" + base64.StdEncoding.EncodeToString([]byte("test-signing-secret"))
	testNow    = time.Unix(1_700_000_000, 0)
	testBody   = []byte(`{"type":"user.created","object":"event","data":{"id":"user_123","first_name":"Ada","last_name":"Lovelace","image_url":"https://img.example/ada.png"}}`)
)

func newTestVerifier(t *testing.T) *Verifier {
	t.Helper()
	v, err := NewVerifier(testSecret, WithClock(func() time.Time { return testNow }))
	require.NoError(t, err)
	return v
}

func signedHeaders(v *Verifier, id string, ts time.Time, body []byte) Headers {
	return Headers{
		ID:        id,
		Timestamp: strconv.FormatInt(ts.Unix(), 10),
		Signature: v.Sign(id, ts, body),
	}
}

func TestNewVerifierRequiresSecret(t *testing.T) {
	_, err := NewVerifier("")
	require.ErrorIs(t, err, ErrConfiguration)

	_, err = NewVerifier("whsec_%%%not-base64")
	require.ErrorIs(t, err, ErrConfiguration)
}

func TestVerifyValid(t *testing.T) {
	v := newTestVerifier(t)

	event, err := v.Verify(testBody, signedHeaders(v, "msg_1", testNow, testBody))
	require.NoError(t, err)
	assert.Equal(t, EventUserCreated, event.Type)
	assert.Equal(t, "event", event.Object)
}

func TestVerifyAlteredHeaderByte(t *testing.T) {
	v := newTestVerifier(t)
	good := signedHeaders(v, "msg_1", testNow, testBody)

	alterID := good
	alterID.ID = "msg_2"

	alterTS := good
	alterTS.Timestamp = strconv.FormatInt(testNow.Unix()+1, 10)

	sig := []byte(good.Signature)
	if sig[5] == 'A' {
		sig[5] = 'B'
	} else {
		sig[5] = 'A'
	}
	alterSig := good
	alterSig.Signature = string(sig)

	for name, h := range map[string]Headers{"id": alterID, "timestamp": alterTS, "signature": alterSig} {
		t.Run(name, func(t *testing.T) {
			_, err := v.Verify(testBody, h)
			require.ErrorIs(t, err, ErrVerification)
		})
	}
}

func TestVerifyRejections(t *testing.T) {
	v := newTestVerifier(t)

	tests := []struct {
		name    string
		body    []byte
		headers Headers
	}{
		{"missing headers", testBody, Headers{ID: "msg_1"}},
		{"bad timestamp", testBody, Headers{ID: "msg_1", Timestamp: "yesterday", Signature: "v1,abc"}},
		{"too old", testBody, signedHeaders(v, "msg_1", testNow.Add(-6*time.Minute), testBody)},
		{"too new", testBody, signedHeaders(v, "msg_1", testNow.Add(6*time.Minute), testBody)},
		{"altered body", []byte(`{"type":"user.deleted"}`), signedHeaders(v, "msg_1", testNow, testBody)},
		{"malformed payload", []byte("not json"), signedHeaders(v, "msg_1", testNow, []byte("not json"))},
		{"no type", []byte(`{"data":{}}`), signedHeaders(v, "msg_1", testNow, []byte(`{"data":{}}`))},
		{"wrong version", testBody, Headers{ID: "msg_1", Timestamp: strconv.FormatInt(testNow.Unix(), 10), Signature: "v2," + v.Sign("msg_1", testNow, testBody)[3:]}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(tt.body, tt.headers)
			require.ErrorIs(t, err, ErrVerification)
		})
	}
}

func TestVerifyWithinTolerance(t *testing.T) {
	v := newTestVerifier(t)

	for _, skew := range []time.Duration{-4 * time.Minute, 4 * time.Minute} {
		_, err := v.Verify(testBody, signedHeaders(v, "msg_1", testNow.Add(skew), testBody))
		require.NoError(t, err, "skew %s", skew)
	}
}

func TestVerifyRotatedSecrets(t *testing.T) {
	v := newTestVerifier(t)
	h := signedHeaders(v, "msg_1", testNow, testBody)
	h.Signature = "v1,c3RhbGUtc2lnbmF0dXJl " + h.Signature

	_, err := v.Verify(testBody, h)
	require.NoError(t, err)
}

func TestHeadersFrom(t *testing.T) {
	h := http.Header{}
	h.Set(HeaderID, "msg_1")
	h.Set(HeaderTimestamp, "123")
	h.Set(HeaderSignature, "v1,xyz")

	assert.Equal(t, Headers{ID: "msg_1", Timestamp: "123", Signature: "v1,xyz"}, HeadersFrom(h))
}

func TestEventUser(t *testing.T) {
	v := newTestVerifier(t)
	event, err := v.Verify(testBody, signedHeaders(v, "msg_1", testNow, testBody))
	require.NoError(t, err)
	require.True(t, event.IsUserEvent())

	user, err := event.User("https://auth.example.com")
	require.NoError(t, err)
	assert.Equal(t, "https://auth.example.com|user_123", user.TokenIdentifier)
	assert.Equal(t, "Ada Lovelace", user.Name)
	assert.Equal(t, "https://img.example/ada.png", user.Image)
}

func TestReplayGuard(t *testing.T) {
	g := NewReplayGuard(claim.NewMemory(8, time.Minute), DefaultTolerance)
	ctx := context.Background()

	first, err := g.FirstDelivery(ctx, "msg_1")
	require.NoError(t, err)
	assert.True(t, first)

	again, err := g.FirstDelivery(ctx, "msg_1")
	require.NoError(t, err)
	assert.False(t, again)

	require.NoError(t, g.Forget(ctx, "msg_1"))
	retry, err := g.FirstDelivery(ctx, "msg_1")
	require.NoError(t, err)
	assert.True(t, retry)
}

func TestNewSecret(t *testing.T) {
	a, err := NewSecret()
	require.NoError(t, err)
	b, err := NewSecret()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(a, "whsec_"))
	assert.NotEqual(t, a, b)

	v, err := NewVerifier(a)
	require.NoError(t, err)

	now := time.Now()
	payload := []byte(`{"type":"user.created","data":{}}`)
	_, err = v.Verify(payload, Headers{ID: "msg_1", Timestamp: strconv.FormatInt(now.Unix(), 10), Signature: v.Sign("msg_1", now, payload)})
	require.NoError(t, err)
}
