package transport

import (
	"encoding/json"
	"fmt"
)

// APIError is a non-2xx reply. Structured provider errors fill Type, Code,
// Message and Param; anything else lands in Body.
type APIError struct {
	StatusCode int
	Type       string
	Code       string
	Message    string
	Param      string
	Body       string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		if e.Type != "" {
			return fmt.Sprintf("api error %d: %s (%s)", e.StatusCode, e.Message, e.Type)
		}
		return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Body)
}

type providerErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Param   string `json:"param"`
		Code    any    `json:"code"`
	} `json:"error"`
}

func parseAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}

	var perr providerErrorResponse
	if err := json.Unmarshal(body, &perr); err == nil && perr.Error.Message != "" {
		apiErr.Type = perr.Error.Type
		apiErr.Message = perr.Error.Message
		apiErr.Param = perr.Error.Param
		if perr.Error.Code != nil {
			apiErr.Code = fmt.Sprint(perr.Error.Code)
		}
		return apiErr
	}

	apiErr.Body = truncate(string(body), 200)
	return apiErr
}

// truncate limits string length for logging
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
