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
	auditSession string
	auditMinRisk string
	auditSince   time.Duration
	auditLimit   int
	auditJSON    bool
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the audit trail",
	Long: `Every processed question leaves one audit record holding lengths, risk
level and violation types. Question and answer text are never stored.`,
}

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "List audit records, newest first",
	Args:  cobra.NoArgs,
	RunE:  runAuditList,
}

var auditStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarise audit records",
	Args:  cobra.NoArgs,
	RunE:  runAuditStats,
}

func init() {
	for _, c := range []*cobra.Command{auditListCmd, auditStatsCmd} {
		c.Flags().StringVar(&auditSession, "session", "", "only records from this session")
		c.Flags().StringVar(&auditMinRisk, "min-risk", "", "only records at or above this risk level (low, medium, high, critical)")
		c.Flags().DurationVar(&auditSince, "since", 0, "only records from the last duration, e.g. 24h")
		c.Flags().BoolVar(&auditJSON, "json", false, "output as JSON")
	}
	auditListCmd.Flags().IntVarP(&auditLimit, "limit", "n", domain.DefaultAuditLimit, "maximum number of records")

	auditCmd.AddCommand(auditListCmd)
	auditCmd.AddCommand(auditStatsCmd)
	rootCmd.AddCommand(auditCmd)
}

// auditFilter builds the filter from the command flags.
func auditFilter(now time.Time) (domain.AuditFilter, error) {
	filter := domain.AuditFilter{
		SessionID: auditSession,
		Limit:     auditLimit,
	}
	if auditMinRisk != "" {
		level, err := domain.ParseRiskLevel(auditMinRisk)
		if err != nil {
			return domain.AuditFilter{}, err
		}
		filter.MinRisk = &level
	}
	if auditSince < 0 {
		return domain.AuditFilter{}, fmt.Errorf("%w: --since must be positive", domain.ErrInvalidInput)
	}
	if auditSince > 0 {
		filter.Since = now.Add(-auditSince)
	}
	return filter, nil
}

func runAuditList(cmd *cobra.Command, _ []string) error {
	if auditQuery == nil {
		return errors.New("audit service not configured")
	}

	filter, err := auditFilter(time.Now())
	if err != nil {
		return err
	}

	records, err := auditQuery.List(cmd.Context(), filter)
	if err != nil {
		return fmt.Errorf("failed to list audit records: %w", err)
	}

	if auditJSON {
		return writeJSON(cmd, records)
	}

	if len(records) == 0 {
		cmd.Println("No audit records found.")
		return nil
	}

	p := newPrinter(cmd)
	for _, r := range records {
		p.printf("%s  %-8s  %s  violations=%d",
			r.Timestamp.Local().Format(time.DateTime),
			p.paint(p.styles.Risk(r.RiskLevel), r.RiskLevel.String()),
			r.SessionID,
			r.ViolationsCount)
		if len(r.ViolationTypes) > 0 {
			p.printf(" [%s]", strings.Join(r.ViolationTypes, ", "))
		}
		if r.TimedOut {
			p.printf(" timed-out")
		}
		p.printf("  %s\n", r.ProcessingTime.Round(time.Millisecond))
	}
	return nil
}

func runAuditStats(cmd *cobra.Command, _ []string) error {
	if auditQuery == nil {
		return errors.New("audit service not configured")
	}

	filter, err := auditFilter(time.Now())
	if err != nil {
		return err
	}

	stats, err := auditQuery.Stats(cmd.Context(), filter)
	if err != nil {
		return fmt.Errorf("failed to read audit stats: %w", err)
	}

	if auditJSON {
		byRisk := make(map[string]int, len(stats.ByRiskLevel))
		for level, n := range stats.ByRiskLevel {
			byRisk[level.String()] = n
		}
		return writeJSON(cmd, struct {
			domain.AuditStats
			ByRiskLevel map[string]int `json:"by_risk_level"`
		}{stats, byRisk})
	}

	cmd.Println("Audit")
	cmd.Println("=====")
	cmd.Printf("  Requests:            %d\n", stats.TotalRequests)
	cmd.Printf("  Violations:          %d\n", stats.TotalViolations)
	cmd.Printf("  PII detected:        %d\n", stats.PIIDetected)
	cmd.Printf("  Injection attempted: %d\n", stats.InjectionAttempted)
	cmd.Printf("  Timed out:           %d\n", stats.TimedOut)
	cmd.Println()
	cmd.Println("  By risk level:")
	for _, level := range []domain.RiskLevel{domain.RiskLow, domain.RiskMedium, domain.RiskHigh, domain.RiskCritical} {
		cmd.Printf("    %-9s %d\n", level.String()+":", stats.ByRiskLevel[level])
	}
	return nil
}
