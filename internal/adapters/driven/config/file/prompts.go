package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/custodia-labs/riskpilot/internal/core/ports/driven"
	"github.com/custodia-labs/riskpilot/internal/logger"
)

// Ensure PromptStore implements the interface.
var _ driven.PromptStore = (*PromptStore)(nil)

// PromptStore loads answer generation prompts from user-editable files.
// Files are created lazily on first Load, never in the constructor.
type PromptStore struct {
	mu        sync.RWMutex
	promptDir string
	cache     map[string]string
	initOnce  sync.Once
	initErr   error
}

// defaultPrompts are written as the initial file content and used whenever a
// file is missing or unusable.
var defaultPrompts = map[string]string{
	driven.PromptSystem: `You are a risk management expert.`,

	driven.PromptAnswerWithContext: `You are a Risk Management AI Assistant for a major bank.
Answer the following question based on the provided context from policy documents.
Be precise, professional, and cite sources when possible.

Context from policy documents:
%s

Question: %s

Answer:`,

	driven.PromptFallbackSystem: `You are a risk management expert. Provide general guidance.`,
}

// placeholders is the number of %s verbs each prompt must carry.
var placeholders = map[string]int{
	driven.PromptSystem:            0,
	driven.PromptAnswerWithContext: 2,
	driven.PromptFallbackSystem:    0,
}

// NewPromptStore creates a new file-based prompt store.
// If promptDir is empty, defaults to ~/.riskpilot/prompts/.
func NewPromptStore(promptDir string) (*PromptStore, error) {
	if promptDir == "" {
		dir, err := DefaultDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		promptDir = filepath.Join(dir, "prompts")
	}

	return &PromptStore{
		promptDir: promptDir,
		cache:     make(map[string]string),
	}, nil
}

// Load returns the prompt template for the given name.
// A file whose placeholders do not match the default is ignored with a warning.
func (s *PromptStore) Load(name string) (string, error) {
	fallback, known := defaultPrompts[name]
	if !known {
		return "", fmt.Errorf("unknown prompt %q", name)
	}

	s.initOnce.Do(s.initialise)
	if s.initErr != nil {
		return fallback, nil
	}

	s.mu.RLock()
	prompt, ok := s.cache[name]
	s.mu.RUnlock()
	if ok {
		return prompt, nil
	}

	prompt, err := s.loadFromFile(name)
	switch {
	case err != nil:
		prompt = fallback
	case strings.Count(prompt, "%s") != placeholders[name]:
		logger.Warn("prompt %s needs %d %%s placeholders, using built-in prompt", name, placeholders[name])
		prompt = fallback
	}

	s.mu.Lock()
	if cached, ok := s.cache[name]; ok {
		prompt = cached
	} else {
		s.cache[name] = prompt
	}
	s.mu.Unlock()

	return prompt, nil
}

// Reload clears the prompt cache, forcing fresh loads from disk.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]string)
	s.mu.Unlock()
}

// Dir returns the prompt directory path.
func (s *PromptStore) Dir() string {
	return s.promptDir
}

// initialise creates the prompt directory, default files and a README.
func (s *PromptStore) initialise() {
	if err := os.MkdirAll(s.promptDir, 0700); err != nil {
		s.initErr = fmt.Errorf("create prompt directory: %w", err)
		logger.Warn("%v", s.initErr)
		return
	}

	for name, content := range defaultPrompts {
		path := filepath.Join(s.promptDir, name+".txt")
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := os.WriteFile(path, []byte(content), 0600); err != nil {
				s.initErr = fmt.Errorf("create default prompt %q: %w", name, err)
				return
			}
		}
	}

	if err := s.createReadme(); err != nil {
		s.initErr = err
	}
}

func (s *PromptStore) loadFromFile(name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.promptDir, name+".txt"))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func (s *PromptStore) createReadme() error {
	path := filepath.Join(s.promptDir, "README.md")
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return nil
	}

	content := `# riskpilot prompts

Prompts used by the OpenAI answer generator. The offline template generator
ignores them.

## Files

- ` + "`system.txt`" + ` - System message for answers grounded on policy passages
- ` + "`answer_with_context.txt`" + ` - User message; first ` + "`%s`" + ` is the context, second is the question
- ` + "`fallback_system.txt`" + ` - System message when no passage was retrieved

Edits take effect on the next command. A file with the wrong number of
placeholders is ignored and the built-in prompt is used instead.
`
	return os.WriteFile(path, []byte(content), 0600)
}
