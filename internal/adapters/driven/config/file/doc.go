// Package file provides file-based implementations of driven port interfaces.
// These adapters persist data to the local filesystem, under ~/.riskpilot by default.
//
// Adapters:
//   - ConfigStore: TOML-based configuration storage
//   - PromptStore: user-editable answer generation prompts
//   - CatalogSource: YAML guardrail catalog override
package file
