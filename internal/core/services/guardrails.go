package services

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/riskpilot/internal/core/domain"
	"github.com/custodia-labs/riskpilot/internal/telemetry"
)

// Redaction constants.
const (
	maskedPrefixLength = 4
	emailPrefixLength  = 2
	emailMask          = "***@***"
	redactedMarker     = "[REDACTED]"
	outputPIIMarker    = "[PII DETECTED IN OUTPUT]"
)

// compiledPII is a PII pattern ready for matching.
type compiledPII struct {
	kind domain.PIIType
	re   *regexp.Regexp
}

// GuardrailService runs the content-safety detectors.
// Catalogs are compiled once; the service is safe for concurrent use.
type GuardrailService struct {
	pii           []compiledPII
	bannedTopics  []string
	toxic         []string
	injection     []string
	hallucination []string
}

// NewGuardrailService compiles catalog. Patterns match case-insensitively.
func NewGuardrailService(catalog domain.GuardrailCatalog) (*GuardrailService, error) {
	s := &GuardrailService{
		bannedTopics:  catalog.BannedTopics,
		toxic:         lowerAll(catalog.ToxicMarkers),
		injection:     lowerAll(catalog.InjectionPhrases),
		hallucination: lowerAll(catalog.HallucinationMarkers),
	}
	for _, p := range catalog.PII {
		re, err := regexp.Compile("(?i)" + p.Pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: pii pattern %s: %v", domain.ErrInvalidInput, p.Type, err)
		}
		s.pii = append(s.pii, compiledPII{kind: p.Type, re: re})
	}
	return s, nil
}

// SanitizeInput redacts PII in text and reports every detector that fired.
// PII matches are found in the original text; each match yields one violation.
func (s *GuardrailService) SanitizeInput(text string) (string, []domain.Violation) {
	violations := []domain.Violation{}
	sanitized := text

	for _, p := range s.pii {
		for _, match := range p.re.FindAllString(text, -1) {
			redacted := redact(p.kind, match)
			sanitized = strings.ReplaceAll(sanitized, match, redacted)
			violations = append(violations, domain.Violation{
				Kind:            domain.ViolationPII,
				Severity:        domain.RiskHigh,
				Description:     fmt.Sprintf("Detected %s in input", strings.ToUpper(string(p.kind))),
				RedactedExcerpt: redacted,
			})
		}
	}

	lower := strings.ToLower(text)

	var topics []string
	for _, topic := range s.bannedTopics {
		if strings.Contains(lower, strings.ToLower(topic)) {
			topics = append(topics, topic)
		}
	}
	if len(topics) > 0 {
		violations = append(violations, domain.Violation{
			Kind:        domain.ViolationBannedTopic,
			Severity:    domain.RiskMedium,
			Description: "Detected banned topics: " + strings.Join(topics, ", "),
		})
	}

	if containsAny(lower, s.toxic) {
		violations = append(violations, domain.Violation{
			Kind:        domain.ViolationToxic,
			Severity:    domain.RiskHigh,
			Description: "Potentially toxic content detected",
		})
	}

	if containsAny(lower, s.injection) {
		violations = append(violations, domain.Violation{
			Kind:        domain.ViolationPromptInjection,
			Severity:    domain.RiskCritical,
			Description: "Potential prompt injection attempt",
		})
	}

	recordViolations(violations)
	return sanitized, violations
}

// ValidateOutput checks a generated answer. PII in output is critical.
func (s *GuardrailService) ValidateOutput(text string) []domain.Violation {
	violations := []domain.Violation{}

	for _, p := range s.pii {
		if p.re.MatchString(text) {
			violations = append(violations, domain.Violation{
				Kind:            domain.ViolationPII,
				Severity:        domain.RiskCritical,
				Description:     "Output contains PII - blocking response",
				RedactedExcerpt: outputPIIMarker,
			})
			break
		}
	}

	if containsAny(strings.ToLower(text), s.hallucination) {
		violations = append(violations, domain.Violation{
			Kind:        domain.ViolationHallucination,
			Severity:    domain.RiskMedium,
			Description: "Potential hallucination or inappropriate response",
		})
	}

	recordViolations(violations)
	return violations
}

// CalculateRiskLevel returns the highest severity present, RiskLow when empty.
func (s *GuardrailService) CalculateRiskLevel(violations []domain.Violation) domain.RiskLevel {
	level := domain.RiskLow
	for _, v := range violations {
		level = level.Max(v.Severity)
	}
	return level
}

// AuditEntry summarises a request for the audit trail. Identifiers and
// timings are left to the caller. Lengths are in characters.
func (s *GuardrailService) AuditEntry(input, output string, violations []domain.Violation, risk domain.RiskLevel) domain.AuditRecord {
	record := domain.AuditRecord{
		InputLength:     utf8.RuneCountInString(input),
		OutputLength:    utf8.RuneCountInString(output),
		ViolationsCount: len(violations),
		ViolationTypes:  []string{},
		RiskLevel:       risk,
	}

	kinds := make(map[domain.ViolationKind]struct{})
	for _, v := range violations {
		kinds[v.Kind] = struct{}{}
		switch v.Kind {
		case domain.ViolationPII:
			record.PIIDetected = true
		case domain.ViolationPromptInjection:
			record.InjectionAttempted = true
		}
	}
	for k := range kinds {
		record.ViolationTypes = append(record.ViolationTypes, string(k))
	}
	sort.Strings(record.ViolationTypes)
	return record
}

// redact masks a PII match according to its type.
func redact(kind domain.PIIType, match string) string {
	switch kind {
	case domain.PIIEmail:
		local, _, _ := strings.Cut(match, "@")
		return truncateRunes(local, emailPrefixLength) + emailMask
	case domain.PIISSN, domain.PIICreditCard, domain.PIIIBAN:
		runes := []rune(match)
		if len(runes) <= maskedPrefixLength {
			return match
		}
		return string(runes[:maskedPrefixLength]) + strings.Repeat("*", len(runes)-maskedPrefixLength)
	default:
		return redactedMarker
	}
}

func containsAny(lower string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

func lowerAll(phrases []string) []string {
	out := make([]string, len(phrases))
	for i, p := range phrases {
		out[i] = strings.ToLower(p)
	}
	return out
}

func recordViolations(violations []domain.Violation) {
	for _, v := range violations {
		telemetry.RecordViolation(string(v.Kind), v.Severity.String())
	}
}
