// Package refgen produces globally unique document reference numbers.
//
// A reference is {TYPE-PREFIX}-{base36 millis}-{random suffix}. The random
// suffix comes from crypto/rand, so references from concurrent processes do
// not collide even within the same millisecond. Generation is a pure function
// of the clock and the RNG; no shared counter is involved.
package refgen

import (
	"crypto/rand"
	"fmt"
	"strconv"
	"strings"
	"time"

	"veridoc/internal/document/models"
)

const (
	suffixLen      = 8
	suffixAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// Generator creates reference numbers. The zero value is not usable; use New.
type Generator struct {
	now func() time.Time
}

// Option customizes a Generator.
type Option func(*Generator)

// WithClock overrides the clock, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// New constructs a Generator.
func New(opts ...Option) *Generator {
	g := &Generator{now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns a reference number for the given document type, or an
// error when the type is outside the supported set.
func (g *Generator) Generate(docType models.DocumentType) (string, error) {
	prefix, err := docType.ReferencePrefix()
	if err != nil {
		return "", err
	}

	millis := g.now().UnixMilli()
	suffix, err := randomSuffix(suffixLen)
	if err != nil {
		return "", fmt.Errorf("generate reference suffix: %w", err)
	}

	return fmt.Sprintf("%s-%s-%s", prefix, strconv.FormatInt(millis, 36), suffix), nil
}

func randomSuffix(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	var b strings.Builder
	b.Grow(n)
	for _, c := range buf {
		b.WriteByte(suffixAlphabet[int(c)%len(suffixAlphabet)])
	}
	return b.String(), nil
}
