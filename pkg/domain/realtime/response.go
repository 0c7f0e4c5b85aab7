// Package realtime models the events exchanged over a realtime session
// and the response objects they carry.
package realtime

// Response describes a generation started with response.create. It arrives
// in response.created (in progress) and response.done (final).
type Response struct {
	ID            string         `json:"id,omitempty"`
	Object        string         `json:"object,omitempty"`
	Status        string         `json:"status,omitempty"`
	StatusDetails *StatusDetails `json:"status_details,omitempty"`
	Output        Items          `json:"output,omitempty"`
	Usage         *UsageResponse `json:"usage,omitempty"`
}

const (
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
	StatusIncomplete = "incomplete"
	StatusFailed     = "failed"
)

// StatusDetails explains a response that did not complete.
type StatusDetails struct {
	Type   string       `json:"type,omitempty"`
	Reason string       `json:"reason,omitempty"`
	Error  *ErrorDetail `json:"error,omitempty"`
}

type ErrorDetail struct {
	Type string `json:"type,omitempty"`
	Code string `json:"code,omitempty"`
}

type UsageResponse struct {
	TotalTokens        int           `json:"total_tokens,omitempty"`
	InputTokens        int           `json:"input_tokens,omitempty"`
	OutputTokens       int           `json:"output_tokens,omitempty"`
	InputTokenDetails  *TokenDetails `json:"input_token_details,omitempty"`
	OutputTokenDetails *TokenDetails `json:"output_token_details,omitempty"`
}

type TokenDetails struct {
	TextTokens   int `json:"text_tokens,omitempty"`
	AudioTokens  int `json:"audio_tokens,omitempty"`
	CachedTokens int `json:"cached_tokens,omitempty"`
}
