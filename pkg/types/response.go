package types

const (
	StatusSuccess = "success"
	StatusFail    = "fail"
	StatusError   = "error"
)

type SuccessEnvelope struct {
	Status string `json:"status"`
	Data   any    `json:"data"`
}

// ErrorEnvelope uses "fail" for client errors and "error" for server errors.
type ErrorEnvelope struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}
