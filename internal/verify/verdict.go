package verify

import "time"

// Verdict is the terminal outcome of a verification request.
type Verdict string

const (
	VerdictValid             Verdict = "valid"
	VerdictInvalid           Verdict = "invalid"
	VerdictPartiallyVerified Verdict = "partially_verified"
	VerdictExpired           Verdict = "expired"
	VerdictRevoked           Verdict = "revoked"
	VerdictTampered          Verdict = "tampered"
	VerdictNotFound          Verdict = "not_found"
)

// Outcome is one registry's answer for a document. Unknown covers every
// degraded case: circuit open, exhausted endpoints, timeouts.
type Outcome string

const (
	OutcomeConfirmed Outcome = "confirmed"
	OutcomeDenied    Outcome = "denied"
	OutcomeUnknown   Outcome = "unknown"
)

// RegistryOutcome is the per-registry detail behind an aggregated verdict.
type RegistryOutcome struct {
	Registry string  `json:"registry"`
	Outcome  Outcome `json:"outcome"`
	Source   string  `json:"source,omitempty"`
	Cached   bool    `json:"cached,omitempty"`
	Detail   string  `json:"detail,omitempty"`
}

// Result is what a verification request returns. Degraded registry calls
// surface here as unknown outcomes, never as request errors.
type Result struct {
	Verdict         Verdict           `json:"verdict"`
	ReferenceNumber string            `json:"referenceNumber,omitempty"`
	Outcomes        []RegistryOutcome `json:"outcomes,omitempty"`
	CheckedAt       time.Time         `json:"checkedAt"`
}

// aggregate folds per-registry outcomes into a single verdict. Any explicit
// denial wins over everything; unknown degrades a clean sweep to
// partially verified but never upgrades to valid.
func aggregate(outcomes []RegistryOutcome) Verdict {
	anyUnknown := false
	for _, o := range outcomes {
		switch o.Outcome {
		case OutcomeDenied:
			return VerdictInvalid
		case OutcomeUnknown:
			anyUnknown = true
		}
	}
	if anyUnknown {
		return VerdictPartiallyVerified
	}
	return VerdictValid
}
