package dto

// Response represents a standard API response
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
	Meta    *Meta      `json:"meta,omitempty"`
}

// ErrorInfo represents error details
type ErrorInfo struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string             `json:"request_id,omitempty"`
	Details   []ValidationDetail `json:"details,omitempty"`
}

// ValidationDetail names one rejected request field
type ValidationDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Meta describes a list page
type Meta struct {
	Count int `json:"count"`
	Limit int `json:"limit"`
}

// NewSuccessResponse creates a success response
func NewSuccessResponse(data any) Response {
	return Response{
		Success: true,
		Data:    data,
	}
}

// NewListResponse creates a success response carrying page metadata
func NewListResponse(data any, count, limit int) Response {
	return Response{
		Success: true,
		Data:    data,
		Meta:    &Meta{Count: count, Limit: limit},
	}
}

// NewErrorResponse creates an error response
func NewErrorResponse(code, message string) Response {
	return Response{
		Success: false,
		Error: &ErrorInfo{
			Code:    code,
			Message: message,
		},
	}
}

// NewErrorResponseWithRequestID creates an error response tagged with the request ID
func NewErrorResponseWithRequestID(code, message, requestID string) Response {
	r := NewErrorResponse(code, message)
	r.Error.RequestID = requestID
	return r
}

// NewValidationErrorResponse creates a validation error response with field details
func NewValidationErrorResponse(message, requestID string, details []ValidationDetail) Response {
	r := NewErrorResponseWithRequestID(ErrCodeValidation, message, requestID)
	r.Error.Details = details
	return r
}

// WebhookAck is the body returned to a marketplace for an accepted delivery.
// Received is set for momo and Topic for shopline.
type WebhookAck struct {
	Success  bool   `json:"success"`
	Received string `json:"received,omitempty"`
	Topic    string `json:"topic,omitempty"`
}

// WebhookError is the body returned to a marketplace for a refused delivery
type WebhookError struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// NewWebhookError creates a WebhookError
func NewWebhookError(message string) WebhookError {
	return WebhookError{Success: false, Error: message}
}

// EndpointStatus is returned by webhook GET requests without a challenge
type EndpointStatus struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp,omitempty"`
}
