package clients

import "fmt"

// ExternalCallError wraps a failed call to an upstream service (LLM
// endpoint, Shopify API). StatusCode is zero for transport failures.
type ExternalCallError struct {
	Service    string
	StatusCode int
	Message    string
}

func (e *ExternalCallError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s call failed with status %d: %s", e.Service, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s call failed: %s", e.Service, e.Message)
}

func externalErrorf(service string, status int, format string, args ...interface{}) *ExternalCallError {
	return &ExternalCallError{
		Service:    service,
		StatusCode: status,
		Message:    fmt.Sprintf(format, args...),
	}
}
