package operation

// defaultFailureMessage is used when an error has no description of its own.
const defaultFailureMessage = "operation failed"

// Response carries the envelope fields of every operation response.
// Concrete response types embed it so the fields are flattened into the payload.
type Response struct {
	Success      bool    `json:"success"`
	ErrorMessage *string `json:"errorMessage"`
}

// Envelope is the contract the executor needs from a response value.
// Any struct embedding Response satisfies it through its pointer.
type Envelope interface {
	MarkSucceeded()
	MarkFailed(message string)
}

// MarkSucceeded flags the response successful and clears any error message.
func (r *Response) MarkSucceeded() {
	r.Success = true
	r.ErrorMessage = nil
}

// MarkFailed flags the response failed with a non-empty message.
func (r *Response) MarkFailed(message string) {
	if message == "" {
		message = defaultFailureMessage
	}
	r.Success = false
	r.ErrorMessage = &message
}

// FailureMessage returns the failure message, or "" for successful responses.
func (r *Response) FailureMessage() string {
	if r.ErrorMessage == nil {
		return ""
	}
	return *r.ErrorMessage
}

// responsePtr constrains P to *T where *T is an Envelope, so the executor can
// allocate fresh responses with new(T).
type responsePtr[T any] interface {
	*T
	Envelope
}
