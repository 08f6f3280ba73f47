package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/riskpilot/internal/core/domain"
)

// executeCommand runs the root command with args and returns everything written.
func executeCommand(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetArgs(nil)
		resetFlags(rootCmd)
	})

	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

// resetFlags restores every flag to its default so package-level flag
// variables do not leak between tests.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// setupTestServices installs s for the duration of the test.
func setupTestServices(t *testing.T, s Services) {
	t.Helper()
	SetServices(s)
	t.Cleanup(func() { SetServices(Services{}) })
}

// mockPipeline implements driving.PipelineService.
type mockPipeline struct {
	resp *domain.ProcessResponse
	err  error
	got  domain.ProcessRequest
}

func (m *mockPipeline) Process(_ context.Context, req domain.ProcessRequest) (*domain.ProcessResponse, error) {
	m.got = req
	return m.resp, m.err
}

// mockIndexAdmin implements driving.IndexAdmin.
type mockIndexAdmin struct {
	stats       domain.IndexStats
	report      *domain.RebuildReport
	err         error
	rebuiltDir  string
	fromProcess bool
}

func (m *mockIndexAdmin) Stats() domain.IndexStats {
	return m.stats
}

func (m *mockIndexAdmin) Load(context.Context) error {
	return m.err
}

func (m *mockIndexAdmin) Rebuild(_ context.Context, dir string) (*domain.RebuildReport, error) {
	m.rebuiltDir = dir
	return m.report, m.err
}

func (m *mockIndexAdmin) RebuildFromProcessed(context.Context) (*domain.RebuildReport, error) {
	m.fromProcess = true
	return m.report, m.err
}

// mockAuditQuery implements driving.AuditQuery.
type mockAuditQuery struct {
	records []domain.AuditRecord
	stats   domain.AuditStats
	err     error
	filter  domain.AuditFilter
}

func (m *mockAuditQuery) List(_ context.Context, filter domain.AuditFilter) ([]domain.AuditRecord, error) {
	m.filter = filter
	return m.records, m.err
}

func (m *mockAuditQuery) Stats(_ context.Context, filter domain.AuditFilter) (domain.AuditStats, error) {
	m.filter = filter
	return m.stats, m.err
}

// mockSettingsService implements driving.SettingsService over in-memory settings.
type mockSettingsService struct {
	settings      domain.AppSettings
	setErr        error
	validateErr   error
	pingErr       error
	set           map[string]string
	embedProvider domain.AIProvider
	llmProvider   domain.AIProvider
	model         string
	apiKey        string
}

func newMockSettingsService() *mockSettingsService {
	return &mockSettingsService{
		settings: domain.DefaultAppSettings(),
		set:      make(map[string]string),
	}
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Save(settings *domain.AppSettings) error {
	if settings == nil {
		return errors.New("nil settings")
	}
	m.settings = *settings
	return nil
}

func (m *mockSettingsService) Set(key, value string) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.set[key] = value
	return nil
}

func (m *mockSettingsService) Keys() []string {
	return []string{"corpus.path", "retrieval.k"}
}

func (m *mockSettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	m.embedProvider, m.model, m.apiKey = provider, model, apiKey
	return nil
}

func (m *mockSettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	m.llmProvider, m.model, m.apiKey = provider, model, apiKey
	return nil
}

func (m *mockSettingsService) Validate() error {
	return m.validateErr
}

func (m *mockSettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

func (m *mockSettingsService) ValidateEmbeddingConfig() error {
	return m.pingErr
}

func (m *mockSettingsService) ValidateLLMConfig() error {
	return m.pingErr
}
