package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/riskpilot/internal/core/domain"
)

var (
	askSession      string
	askNoGuardrails bool
	askGuardrails   bool
	askTraces       bool
	askJSON         bool
	askFilterDoc    string
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about the policy documents",
	Long: `Runs a question through the guarded pipeline: input guardrails,
retrieval, risk evaluation, answer generation, output validation and audit.

Blocked questions are answered with a refusal and a CRITICAL risk level.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askSession, "session", "s", "", "session id to continue a conversation")
	askCmd.Flags().BoolVar(&askNoGuardrails, "no-guardrails", false, "skip input sanitisation and output validation")
	askCmd.Flags().BoolVar(&askGuardrails, "guardrails", false, "run guardrails even when disabled in settings")
	askCmd.MarkFlagsMutuallyExclusive("guardrails", "no-guardrails")
	askCmd.Flags().BoolVar(&askTraces, "traces", false, "show per-stage traces")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the response as JSON")
	askCmd.Flags().StringVar(&askFilterDoc, "filter-doc", "", "restrict retrieval to one document name")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if pipelineService == nil {
		return errors.New("pipeline service not configured")
	}

	resp, err := pipelineService.Process(cmd.Context(), domain.ProcessRequest{
		Query:            strings.Join(args, " "),
		SessionID:        askSession,
		EnableGuardrails: askGuardrails || (!askNoGuardrails && !guardrailsOff),
		WantTraces:       askTraces,
		FilterDocument:   askFilterDoc,
	})
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if askJSON {
		return writeJSON(cmd, resp)
	}

	printResponse(newPrinter(cmd), resp)
	return nil
}

func printResponse(p *printer, resp *domain.ProcessResponse) {
	p.println(p.paint(p.styles.Answer, resp.Answer))
	p.println()

	p.printf("Risk: %s   Confidence: %.2f   Time: %s\n",
		p.paint(p.styles.Risk(resp.RiskLevel), strings.ToUpper(resp.RiskLevel.String())),
		resp.Confidence,
		resp.ProcessingTime.Round(time.Millisecond))
	if resp.TimedOut {
		p.println(p.paint(p.styles.Error, "The request ran out of time."))
	}
	p.println(p.paint(p.styles.Muted, "Session: "+resp.SessionID))

	if len(resp.Violations) > 0 {
		p.println()
		p.println(p.paint(p.styles.Subtitle, "Guardrail violations:"))
		for _, v := range resp.Violations {
			p.printf("  - [%s] %s: %s\n",
				p.paint(p.styles.Risk(v.Severity), strings.ToUpper(v.Severity.String())), v.Kind, v.Description)
		}
	}

	if len(resp.Citations) > 0 {
		p.println()
		p.println(p.paint(p.styles.Subtitle, "Sources:"))
		for i, c := range resp.Citations {
			location := c.DocumentName
			if c.Section != "" {
				location += " > " + c.Section
			}
			p.printf("  [%d] %s (%.2f)\n", i+1, location, c.RelevanceScore)
			p.printf("      %s\n", p.paint(p.styles.Muted, c.Excerpt))
		}
	}

	if len(resp.Traces) > 0 {
		p.println()
		p.println(p.paint(p.styles.Subtitle, "Traces:"))
		for _, tr := range resp.Traces {
			line := fmt.Sprintf("  %-15s %-9s %s", tr.Stage, tr.Status, tr.Duration)
			if tr.Error != "" {
				line += "  " + tr.Error
			}
			p.println(p.paint(p.styles.Muted, line))
		}
	}
}
