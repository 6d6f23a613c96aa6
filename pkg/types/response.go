package types

type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the error body of every service. CorrelationID is the id the
// request's saga messages carry, so a rejected or stuck transaction can be
// traced from the client's report.
type APIError struct {
	Code          string `json:"code"`
	Message       string `json:"message"`
	Details       any    `json:"details,omitempty"`
	CorrelationID string `json:"correlationId,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
