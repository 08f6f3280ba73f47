// Package template provides an offline answer generator built from fixed templates.
// It needs no network and is the default generator.
package template

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/riskpilot/internal/core/domain"
	"github.com/custodia-labs/riskpilot/internal/core/ports/driven"
)

// Ensure Generator implements the interface.
var _ driven.AnswerGenerator = (*Generator)(nil)

// DefaultModel is the reported model name.
const DefaultModel = "mock-llm"

const (
	previewLength = 500
	maxSources    = 3
)

const groundedTemplate = `Based on the relevant policy documents, here's the information regarding your query:

**Key Finding:**
%s

**Summary:**
The policy documents indicate specific requirements and procedures that must be followed. `

const modelRiskAnswer = `Model risk refers to the potential for adverse consequences from decisions based on incorrect or misused model outputs.

Key aspects include:
- Fundamental errors in methodology
- Implementation mistakes
- Using models outside intended purpose
- Data quality issues
- Performance degradation

For specific requirements, please refer to the Model Risk Management Policy.`

const aiGovernanceAnswer = `AI governance ensures responsible and ethical AI deployment in banking contexts.

Key principles:
- Transparency and explainability
- Fairness and non-discrimination
- Security and privacy
- Human oversight
- Regulatory compliance

Consult the AI Governance Policy for detailed requirements.`

const complianceAnswer = `Regulatory compliance in banking involves adhering to laws and regulations.

Important areas:
- Basel III/IV requirements
- EU AI Act compliance
- GDPR for data protection
- Anti-money laundering (AML)
- Know Your Customer (KYC)

Specific requirements vary by jurisdiction and business area.`

const genericAnswer = `I understand you're asking about: "%s"

While I don't have specific policy documents that directly address this query, I can provide general risk management guidance. For authoritative information, please consult:

1. Model Risk Management Policy - for model-related queries
2. AI Governance Policy - for AI/ML topics
3. Operational Risk Framework - for operational concerns

Would you like to rephrase your question or ask about a specific policy area?`

// Generator produces deterministic answers.
type Generator struct{}

// NewGenerator creates a template generator.
func NewGenerator() *Generator {
	return &Generator{}
}

// GenerateWithContext previews the context and lists up to three sources.
func (g *Generator) GenerateWithContext(ctx context.Context, _, retrieved string, citations []domain.Citation) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	preview := []rune(retrieved)
	if len(preview) > previewLength {
		preview = preview[:previewLength]
	}
	finding := string(preview)
	if finding == "" {
		finding = "No context available"
	}

	var b strings.Builder
	fmt.Fprintf(&b, groundedTemplate, finding)

	var total float64
	if len(citations) > 0 {
		b.WriteString("\n\n**Sources:**\n")
		for i, c := range citations {
			total += c.RelevanceScore
			if i >= maxSources {
				continue
			}
			section := c.Section
			if section == "" {
				section = "General"
			}
			fmt.Fprintf(&b, "%d. %s - %s\n", i+1, c.DocumentName, section)
		}
	}

	average := 0.0
	if len(citations) > 0 {
		average = total / float64(len(citations))
	}
	fmt.Fprintf(&b, "\n\nThis response is based on %d relevant policy sections with an average relevance score of %.2f",
		len(citations), average)

	return b.String(), nil
}

// GenerateFallback returns a topic-specific answer, or a generic one echoing the query.
func (g *Generator) GenerateFallback(ctx context.Context, query string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	lower := strings.ToLower(query)
	words := strings.FieldsFunc(lower, func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	})

	switch {
	case strings.Contains(lower, "model risk"):
		return modelRiskAnswer, nil
	case containsWord(words, "ai", "llm", "llms"):
		return aiGovernanceAnswer, nil
	case strings.Contains(lower, "compliance") || strings.Contains(lower, "regulatory"):
		return complianceAnswer, nil
	default:
		return fmt.Sprintf(genericAnswer, query), nil
	}
}

func containsWord(words []string, targets ...string) bool {
	for _, w := range words {
		for _, t := range targets {
			if w == t {
				return true
			}
		}
	}
	return false
}

// ModelName returns the reported model name.
func (g *Generator) ModelName() string {
	return DefaultModel
}
