package types

// Message is one turn of a chat transcript.
type Message struct {
	// Speaker of the turn.
	// example: user
	Role string `json:"role" validate:"oneof=user assistant" example:"user"`
	// Text of the turn.
	// example: What is the capital of France?
	Content string `json:"content" example:"What is the capital of France?"`
}

// Conversation is one logit lens request against one model. Only Model,
// Prompt and SelectedTokenIndices drive the analysis; the remaining fields
// mirror what the web interface keeps per conversation.
type Conversation struct {
	// Client-side identifier, echoed back on every layer result.
	// example: c-1
	ID string `json:"id" example:"c-1"`
	// Conversation kind.
	// example: base
	Type string `json:"type" validate:"omitempty,oneof=chat base" example:"base"`
	// Model to analyse; must be listed in the server configuration.
	// example: EleutherAI/gpt-j-6b
	Model string `json:"model" validate:"required" example:"EleutherAI/gpt-j-6b"`
	// Display title.
	Title string `json:"title,omitempty"`
	// System message for chat conversations.
	SystemMessage string `json:"systemMessage,omitempty"`
	// Chat transcript for chat conversations.
	Messages []Message `json:"messages,omitempty" validate:"dive"`
	// Prompt text that is traced.
	// example: The Eiffel Tower is in the city of
	Prompt string `json:"prompt" example:"The Eiffel Tower is in the city of"`
	// UI state.
	IsExpanded bool `json:"isExpanded,omitempty"`
	// Token positions (into the tokenized prompt) to decode at every layer.
	// example: [0,3,7]
	SelectedTokenIndices []int `json:"selectedTokenIndices" example:"0,3,7"`
}

// LayerResult holds the arg-max predictions of one layer at the selected
// positions of one conversation.
type LayerResult struct {
	// Conversation the result belongs to (omitted when the request had no id).
	// example: c-1
	ConversationID string `json:"conversation_id,omitempty" example:"c-1"`
	// Zero-based transformer layer index.
	// example: 0
	LayerIdx int `json:"layer_idx" example:"0"`
	// Probability of each predicted token, one per selected position.
	PredProbs []float64 `json:"pred_probs"`
	// Predicted token string, one per selected position.
	Preds []string `json:"preds"`
}

// ModelResults groups all layer results computed against one model.
type ModelResults struct {
	// example: EleutherAI/gpt-j-6b
	ModelName    string        `json:"model_name" example:"EleutherAI/gpt-j-6b"`
	LayerResults []LayerResult `json:"layer_results"`
}

// ModelInfo describes a configured model for GET /api/models.
type ModelInfo struct {
	// Canonical model name used in requests.
	// example: EleutherAI/gpt-j-6b
	Name string `json:"name" example:"EleutherAI/gpt-j-6b"`
	// Whether a handle has been opened and cached.
	// example: true
	Loaded bool `json:"loaded" example:"true"`
	// Module path aliases passed to the tracing engine.
	Rename map[string]string `json:"rename,omitempty"`
}
