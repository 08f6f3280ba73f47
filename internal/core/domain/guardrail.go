package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// RiskLevel is a totally ordered severity tier.
type RiskLevel int

// Risk levels, lowest first.
const (
	RiskLow RiskLevel = iota
	RiskMedium
	RiskHigh
	RiskCritical
)

// String returns the lower-case name used in records and output.
func (r RiskLevel) String() string {
	switch r {
	case RiskLow:
		return "low"
	case RiskMedium:
		return "medium"
	case RiskHigh:
		return "high"
	case RiskCritical:
		return "critical"
	default:
		return fmt.Sprintf("risk(%d)", int(r))
	}
}

// IsValid returns true if the level is recognised.
func (r RiskLevel) IsValid() bool {
	return r >= RiskLow && r <= RiskCritical
}

// Max returns the higher of the two levels.
func (r RiskLevel) Max(other RiskLevel) RiskLevel {
	if other > r {
		return other
	}
	return r
}

// ParseRiskLevel parses a level name, case-insensitively.
func ParseRiskLevel(s string) (RiskLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return RiskLow, nil
	case "medium":
		return RiskMedium, nil
	case "high":
		return RiskHigh, nil
	case "critical":
		return RiskCritical, nil
	default:
		return RiskLow, fmt.Errorf("%w: risk level %q", ErrInvalidInput, s)
	}
}

// MarshalJSON encodes the level as its name.
func (r RiskLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// UnmarshalJSON decodes a level name.
func (r *RiskLevel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	level, err := ParseRiskLevel(s)
	if err != nil {
		return err
	}
	*r = level
	return nil
}

// ViolationKind identifies the category of a guardrail finding.
type ViolationKind string

// Violation kinds.
const (
	ViolationPII             ViolationKind = "pii"
	ViolationToxic           ViolationKind = "toxic"
	ViolationBannedTopic     ViolationKind = "banned_topic"
	ViolationPromptInjection ViolationKind = "prompt_injection"
	ViolationHallucination   ViolationKind = "hallucination"
)

// Violation is a detected safety or compliance concern.
type Violation struct {
	Kind            ViolationKind `json:"type"`
	Severity        RiskLevel     `json:"severity"`
	Description     string        `json:"description"`
	RedactedExcerpt string        `json:"detected_content,omitempty"`
}

// PIIType names an entry of the PII pattern catalog.
type PIIType string

// PII types with dedicated redaction rules.
const (
	PIISSN        PIIType = "ssn"
	PIICreditCard PIIType = "credit_card"
	PIIEmail      PIIType = "email"
	PIIPhone      PIIType = "phone"
	PIIIBAN       PIIType = "iban"
	PIIPassport   PIIType = "passport"
	PIINationalID PIIType = "national_id"
)

// PIIPattern is a named PII regular expression.
// Patterns are matched case-insensitively.
type PIIPattern struct {
	Type    PIIType `yaml:"type"`
	Pattern string  `yaml:"pattern"`
}

// GuardrailCatalog holds the detector catalogs.
// Phrase lists are matched as case-insensitive substrings.
type GuardrailCatalog struct {
	PII                  []PIIPattern `yaml:"pii"`
	BannedTopics         []string     `yaml:"banned_topics"`
	ToxicMarkers         []string     `yaml:"toxic_markers"`
	InjectionPhrases     []string     `yaml:"injection_phrases"`
	HallucinationMarkers []string     `yaml:"hallucination_markers"`
}

// DefaultGuardrailCatalog returns the built-in catalogs for financial policy Q&A.
func DefaultGuardrailCatalog() GuardrailCatalog {
	return GuardrailCatalog{
		PII: []PIIPattern{
			{Type: PIISSN, Pattern: `\b\d{3}-\d{2}-\d{4}\b`},
			{Type: PIICreditCard, Pattern: `\b\d{4}[\s-]?\d{4}[\s-]?\d{4}[\s-]?\d{4}\b`},
			{Type: PIIEmail, Pattern: `\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`},
			{Type: PIIPhone, Pattern: `\b(?:\+?1[-.]?)?\(?([0-9]{3})\)?[-.]?([0-9]{3})[-.]?([0-9]{4})\b`},
			{Type: PIIIBAN, Pattern: `\b[A-Z]{2}\d{2}[A-Z0-9]{4}\d{7}(?:[A-Z0-9]?){0,16}\b`},
			{Type: PIIPassport, Pattern: `\b[A-Z][0-9]{8}\b`},
			{Type: PIINationalID, Pattern: `\b[12][0-9]{2}[0-1][0-9][0-9]{8}\b`},
		},
		BannedTopics: []string{
			"insider trading",
			"money laundering",
			"tax evasion",
			"market manipulation",
			"ponzi scheme",
			"pyramid scheme",
			"terrorism financing",
		},
		ToxicMarkers: []string{
			"hate speech",
			"discrimination",
			"harassment",
			"violence",
			"self-harm",
		},
		InjectionPhrases: []string{
			"ignore previous instructions",
			"disregard all rules",
			"pretend you are",
			"act as if",
			"bypass safety",
			"jailbreak",
		},
		HallucinationMarkers: []string{
			"as an ai language model",
			"i don't have access to",
			"i cannot provide",
			"my training data",
		},
	}
}
