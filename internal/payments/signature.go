package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidSignature is returned when a webhook payload fails verification.
// Nothing may be parsed or mutated before verification passes.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// DefaultTolerance bounds how old a signed webhook timestamp may be.
const DefaultTolerance = 5 * time.Minute

// VerifySignature checks a provider signature header of the form
// "t=<unix>,v1=<hex>[,v1=<hex>...]" against the raw request body. The signed
// string is "<t>.<body>" and the MAC is HMAC-SHA256 under the shared webhook
// secret. The body must be the exact bytes received on the wire.
func VerifySignature(payload []byte, header, secret string, tolerance time.Duration, now time.Time) error {
	timestamp, candidates, err := parseSignatureHeader(header)
	if err != nil {
		return ErrInvalidSignature
	}

	if tolerance > 0 {
		at := time.Unix(timestamp, 0)
		if now.Sub(at) > tolerance || at.Sub(now) > tolerance {
			return ErrInvalidSignature
		}
	}

	expected := computeSignature(payload, secret, timestamp)
	for _, candidate := range candidates {
		decoded, err := hex.DecodeString(candidate)
		if err != nil {
			continue
		}
		if hmac.Equal(decoded, expected) {
			return nil
		}
	}
	return ErrInvalidSignature
}

// Sign produces a header VerifySignature accepts. Used by tests and by the
// local provider stub in development.
func Sign(payload []byte, secret string, at time.Time) string {
	ts := at.Unix()
	mac := computeSignature(payload, secret, ts)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac))
}

func computeSignature(payload []byte, secret string, timestamp int64) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	return mac.Sum(nil)
}

func parseSignatureHeader(header string) (int64, []string, error) {
	var timestamp int64 = -1
	var candidates []string

	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			parsed, err := strconv.ParseInt(kv[1], 10, 64)
			if err != nil {
				return 0, nil, err
			}
			timestamp = parsed
		case "v1":
			candidates = append(candidates, kv[1])
		}
	}

	if timestamp < 0 || len(candidates) == 0 {
		return 0, nil, errors.New("malformed signature header")
	}
	return timestamp, candidates, nil
}
