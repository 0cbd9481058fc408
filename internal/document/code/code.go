// Package code encodes and decodes the scannable verification payload.
//
// The payload is a compact CBOR envelope, base64url-encoded and prefixed with
// a version tag. It embeds the reference number, the content hash, and a
// verification URL so a scanner can validate a document without any prior
// knowledge of the issuing deployment.
package code

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/fxamacker/cbor/v2"

	"veridoc/pkg/platform/sentinel"
)

// payloadPrefix versions the string format. Decoders reject anything else.
const payloadPrefix = "VD1."

// Payload is the decoded content of a verification code.
type Payload struct {
	ReferenceNumber string `cbor:"1,keyasint"`
	ContentHash     string `cbor:"2,keyasint"`
	VerificationURL string `cbor:"3,keyasint"`
}

// Encoder builds and parses verification payload strings. The base URL is
// deployment configuration; the reference number is appended as a path
// segment to form the verification URL.
type Encoder struct {
	baseURL string
	encMode cbor.EncMode
}

// NewEncoder constructs an Encoder for the given verification base URL.
func NewEncoder(baseURL string) (*Encoder, error) {
	// Canonical encoding so identical metadata always yields an identical
	// payload string.
	encMode, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("build cbor encode mode: %w", err)
	}
	return &Encoder{
		baseURL: strings.TrimRight(baseURL, "/"),
		encMode: encMode,
	}, nil
}

// VerificationURL returns the public URL a scanner should open for the given
// reference number.
func (e *Encoder) VerificationURL(referenceNumber string) string {
	return e.baseURL + "/verify/" + referenceNumber
}

// Encode serializes a reference number and content hash into the payload
// string embedded in issued artifacts.
func (e *Encoder) Encode(referenceNumber, contentHash string) (string, error) {
	if referenceNumber == "" || contentHash == "" {
		return "", fmt.Errorf("%w: reference number and content hash are required", sentinel.ErrMalformedPayload)
	}
	raw, err := e.encMode.Marshal(Payload{
		ReferenceNumber: referenceNumber,
		ContentHash:     contentHash,
		VerificationURL: e.VerificationURL(referenceNumber),
	})
	if err != nil {
		return "", fmt.Errorf("encode verification payload: %w", err)
	}
	return payloadPrefix + base64.RawURLEncoding.EncodeToString(raw), nil
}

// Decode is the exact inverse of Encode. Any input that is not a payload
// Encode produced fails with sentinel.ErrMalformedPayload.
func (e *Encoder) Decode(payload string) (Payload, error) {
	encoded, ok := strings.CutPrefix(payload, payloadPrefix)
	if !ok {
		return Payload{}, fmt.Errorf("%w: missing %q prefix", sentinel.ErrMalformedPayload, payloadPrefix)
	}

	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return Payload{}, fmt.Errorf("%w: %v", sentinel.ErrMalformedPayload, err)
	}

	var decoded Payload
	if err := cbor.Unmarshal(raw, &decoded); err != nil {
		return Payload{}, fmt.Errorf("%w: %v", sentinel.ErrMalformedPayload, err)
	}
	if decoded.ReferenceNumber == "" || decoded.ContentHash == "" || decoded.VerificationURL == "" {
		return Payload{}, fmt.Errorf("%w: required field missing", sentinel.ErrMalformedPayload)
	}
	return decoded, nil
}

// LooksLikePayload reports whether the input is in payload form rather than
// a bare reference number. The coordinator uses this to pick a decode path.
func LooksLikePayload(input string) bool {
	return strings.HasPrefix(input, payloadPrefix)
}
