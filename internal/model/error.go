package model

// ErrorResponse is the JSON body written for every non-2xx local API response.
type ErrorResponse struct {
	Error         string `json:"error"`
	CorrelationID string `json:"correlationId,omitempty"`
}
