// internal/common/errors/handler.go
package errors

import "fmt"

// BPMNError is an error shaped for the Camunda workflow engine.
type BPMNError struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Retries   int32                  `json:"retries"`
	Variables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToBPMN converts any error into a BPMNError. StandardErrors keep their code
// and retry policy; everything else becomes a generic non-retryable failure.
func ToBPMN(err error, defaultRetries int32) *BPMNError {
	if err == nil {
		return nil
	}

	code := CodeOf(err)
	if code == "" {
		return &BPMNError{
			Code:    "INTERNAL_ERROR",
			Message: err.Error(),
		}
	}

	bpmn := &BPMNError{
		Code:      string(code),
		Message:   err.Error(),
		Retryable: IsRetryable(err),
	}
	if bpmn.Retryable {
		bpmn.Retries = defaultRetries
	}
	return bpmn
}
