package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files or embed them in the binary.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// Unknown names return an error; known names with no override return the default.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

// Well-known prompt names.
const (
	// PromptAnswerSystem is the system prompt for answering from context.
	// The template expects one %s placeholder for the answer language.
	PromptAnswerSystem = "answer_system"

	// PromptAnswerContext wraps retrieved chunks and the question.
	// The template expects %s (numbered context) then %s (question).
	PromptAnswerContext = "answer_context"
)
