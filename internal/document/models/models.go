package models

import (
	"time"

	dErrors "veridoc/pkg/domain-errors"
)

// DocumentType is the closed set of documents this system can issue.
type DocumentType string

const (
	TypeBirthCertificate    DocumentType = "birth_certificate"
	TypeDeathCertificate    DocumentType = "death_certificate"
	TypeMarriageCertificate DocumentType = "marriage_certificate"
	TypePassport            DocumentType = "passport"
	TypeIdentityCard        DocumentType = "id_card"
	TypeWorkPermit          DocumentType = "work_permit"
)

// referencePrefixes maps each supported type to the prefix used in reference
// numbers. Membership in this map defines the supported set.
var referencePrefixes = map[DocumentType]string{
	TypeBirthCertificate:    "BC",
	TypeDeathCertificate:    "DC",
	TypeMarriageCertificate: "MC",
	TypePassport:            "PP",
	TypeIdentityCard:        "ID",
	TypeWorkPermit:          "WP",
}

// IsSupported reports whether t is in the supported document type set.
func (t DocumentType) IsSupported() bool {
	_, ok := referencePrefixes[t]
	return ok
}

// ReferencePrefix returns the reference-number prefix for t, or an error for
// types outside the supported set.
func (t DocumentType) ReferencePrefix() (string, error) {
	prefix, ok := referencePrefixes[t]
	if !ok {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unsupported document type %q", t)
	}
	return prefix, nil
}

// Status tracks the record lifecycle. The only transition is active→revoked;
// records are never deleted.
type Status string

const (
	StatusActive  Status = "active"
	StatusRevoked Status = "revoked"
)

// HolderField is one labeled holder attribute. Holder fields are an ordered
// list rather than a map: the artifact renders them in insertion order, and
// the canonical hash sorts them independently of this order.
type HolderField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// HolderFields is the ordered collection of holder attributes.
type HolderFields []HolderField

// Get returns the value for name and whether it was present.
func (h HolderFields) Get(name string) (string, bool) {
	for _, f := range h {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// Clone returns a deep copy so stored records cannot be mutated through
// shared slices.
func (h HolderFields) Clone() HolderFields {
	if h == nil {
		return nil
	}
	out := make(HolderFields, len(h))
	copy(out, h)
	return out
}

// DocumentMetadata is the persisted record of one issued document.
//
// Invariants:
//   - ReferenceNumber is immutable once assigned and unique across all
//     records, live and revoked.
//   - ValidUntil > IssuedAt.
//   - ContentHash is always recomputed during verification, never trusted
//     from storage alone.
type DocumentMetadata struct {
	ID                  string
	ReferenceNumber     string
	DocumentType        DocumentType
	HolderFields        HolderFields
	IssuedAt            time.Time
	ValidUntil          time.Time
	ContentHash         string
	VerificationPayload string
	Status              Status
	StatusChangedAt     time.Time
	StatusReason        string
}

// Expired reports whether the document validity window has passed at now.
func (m DocumentMetadata) Expired(now time.Time) bool {
	return m.ValidUntil.Before(now)
}

// Revoked reports whether the record is in the revoked state.
func (m DocumentMetadata) Revoked() bool {
	return m.Status == StatusRevoked
}

// Clone returns a deep copy of the record.
func (m DocumentMetadata) Clone() DocumentMetadata {
	out := m
	out.HolderFields = m.HolderFields.Clone()
	return out
}
