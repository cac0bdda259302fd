package interfaces

import "context"

// CallType tags which kind of model invocation a request (and its cost
// record) belongs to.
type CallType string

const (
	CallTypeContext         CallType = "context_metadata"
	CallTypeTable           CallType = "table_metadata"
	CallTypeImage           CallType = "image_metadata"
	CallTypeTableCorrection CallType = "improve_table_structure"
)

// ImageAttachment is one inline image for a vision request
type ImageAttachment struct {
	// Name is a caller-side label used only for logging
	Name string

	// MIMEType of the payload, e.g. "image/png"
	MIMEType string

	Data []byte
}

// ModelRequest is a provider-agnostic vision/chat request
type ModelRequest struct {
	CallType CallType

	// System is an optional system instruction
	System string

	// Prompt is the user-role text content
	Prompt string

	// Images are attached after the prompt, in order
	Images []ImageAttachment

	// Temperature defaults to 0, metadata extraction wants deterministic output
	Temperature float32

	// MaxTokens caps the completion; 0 uses the provider default
	MaxTokens int
}

// ModelUsage is the token/cost accounting for one completed call
type ModelUsage struct {
	PromptTokens     int
	CompletionTokens int

	// Cost in USD, estimated from the provider's published per-token pricing
	Cost float64
}

// ModelResult is a completed model invocation
type ModelResult struct {
	// Text is the raw completion text (possibly fenced JSON or HTML)
	Text string

	// Model is the concrete model identifier that served the call
	Model string

	Usage ModelUsage
}

// ModelService is the capability contract for the model-invocation
// collaborator. Implementations must support vision input for the context,
// table, image and table-correction call types, apply their own timeout and
// bounded retry, and report token usage on every successful call.
//
// Failed invocations surface as *models.ModelCallError (retryable).
type ModelService interface {
	Invoke(ctx context.Context, req *ModelRequest) (*ModelResult, error)

	// Model returns the default model identifier the service invokes
	Model() string

	Close() error
}
