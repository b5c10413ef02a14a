package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var (
	ErrVerification  = errors.New("webhook verification failed")
	ErrConfiguration = errors.New("webhook secret not configured")
)

// Header names carried by signed webhook deliveries.
const (
	HeaderID        = "signature-id"
	HeaderTimestamp = "signature-timestamp"
	HeaderSignature = "signature-value"
)

const (
	secretPrefix     = "whsec_"
	signatureVersion = "v1"

	// DefaultTolerance is the accepted clock skew in either direction.
	DefaultTolerance = 5 * time.Minute
)

// Headers are the three signature headers of one delivery.
type Headers struct {
	ID        string
	Timestamp string
	Signature string
}

// HeadersFrom extracts the signature headers from an HTTP request.
func HeadersFrom(h http.Header) Headers {
	return Headers{
		ID:        h.Get(HeaderID),
		Timestamp: h.Get(HeaderTimestamp),
		Signature: h.Get(HeaderSignature),
	}
}

// Event is a verified webhook payload. Only Type is interpreted here.
type Event struct {
	Type   string          `json:"type"`
	Object string          `json:"object,omitempty"`
	Data   json.RawMessage `json:"data"`
}

// Verifier checks HMAC-SHA256 signatures made with a shared secret.
type Verifier struct {
	key       []byte
	tolerance time.Duration
	now       func() time.Time
	logger    zerolog.Logger
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithTolerance overrides DefaultTolerance.
func WithTolerance(d time.Duration) Option {
	return func(v *Verifier) { v.tolerance = d }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(v *Verifier) { v.now = now }
}

// WithLogger sets the logger used to report verification outcomes.
func WithLogger(logger zerolog.Logger) Option {
	return func(v *Verifier) { v.logger = logger }
}

// NewVerifier decodes secret ("whsec_" followed by base64) and returns a
// Verifier. An empty or undecodable secret is a configuration error.
func NewVerifier(secret string, opts ...Option) (*Verifier, error) {
	if secret == "" {
		return nil, ErrConfiguration
	}

	key, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(secret, secretPrefix))
	if err != nil || len(key) == 0 {
		return nil, fmt.Errorf("%w: secret must be base64 encoded", ErrConfiguration)
	}

	v := &Verifier{
		key:       key,
		tolerance: DefaultTolerance,
		now:       time.Now,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Sign returns the signature header value for a delivery.
func (v *Verifier) Sign(id string, ts time.Time, payload []byte) string {
	return signatureVersion + "," + base64.StdEncoding.EncodeToString(v.mac(id, ts.Unix(), payload))
}

// signed content: id.timestamp.payload
func (v *Verifier) mac(id string, ts int64, payload []byte) []byte {
	h := hmac.New(sha256.New, v.key)
	h.Write([]byte(id))
	h.Write([]byte("."))
	h.Write([]byte(strconv.FormatInt(ts, 10)))
	h.Write([]byte("."))
	h.Write(payload)
	return h.Sum(nil)
}

// Verify authenticates payload against the headers and decodes the event.
// Every failure wraps ErrVerification.
func (v *Verifier) Verify(payload []byte, h Headers) (*Event, error) {
	event, err := v.verify(payload, h)
	if err != nil {
		v.logger.Warn().
			Str("type", "security").
			Str("event", "webhook_rejected").
			Str("id", h.ID).
			Err(err).
			Msg("webhook verification failed")
		return nil, err
	}

	v.logger.Info().
		Str("id", h.ID).
		Str("event_type", event.Type).
		Msg("webhook verified")
	return event, nil
}

func (v *Verifier) verify(payload []byte, h Headers) (*Event, error) {
	if h.ID == "" || h.Timestamp == "" || h.Signature == "" {
		return nil, fmt.Errorf("%w: missing signature headers", ErrVerification)
	}

	ts, err := strconv.ParseInt(h.Timestamp, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid timestamp", ErrVerification)
	}

	now := v.now()
	sent := time.Unix(ts, 0)
	if now.Sub(sent) > v.tolerance {
		return nil, fmt.Errorf("%w: timestamp too old", ErrVerification)
	}
	if sent.Sub(now) > v.tolerance {
		return nil, fmt.Errorf("%w: timestamp too new", ErrVerification)
	}

	expected := v.mac(h.ID, ts, payload)
	if !v.matchAny(h.Signature, expected) {
		return nil, fmt.Errorf("%w: no matching signature", ErrVerification)
	}

	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("%w: malformed payload", ErrVerification)
	}
	if event.Type == "" {
		return nil, fmt.Errorf("%w: payload has no type", ErrVerification)
	}
	return &event, nil
}

// matchAny checks each space separated "v1,<sig>" entry; senders list more
// than one while rotating secrets.
func (v *Verifier) matchAny(header string, expected []byte) bool {
	for _, entry := range strings.Fields(header) {
		version, sig, ok := strings.Cut(entry, ",")
		if !ok || version != signatureVersion {
			continue
		}
		decoded, err := base64.StdEncoding.DecodeString(sig)
		if err != nil {
			continue
		}
		if hmac.Equal(decoded, expected) {
			return true
		}
	}
	return false
}
