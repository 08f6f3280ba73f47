package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files or embed them in the binary.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// Unknown names return an error; known names fall back to built-in defaults.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

// Well-known prompt names.
const (
	// PromptSystem is the system message for grounded answers.
	// This prompt has no format placeholders.
	PromptSystem = "system"

	// PromptAnswerWithContext frames the question and retrieved context.
	// The template expects %s (context) then %s (question) placeholders.
	PromptAnswerWithContext = "answer_with_context"

	// PromptFallbackSystem is the system message when nothing was retrieved.
	// This prompt has no format placeholders.
	PromptFallbackSystem = "fallback_system"
)

// PromptStoreAware is an optional interface for services that can use custom prompts.
type PromptStoreAware interface {
	// SetPromptStore sets the prompt store for loading customisable prompts.
	// If not set, the service uses built-in prompts.
	SetPromptStore(store PromptStore)
}
