// Package types holds the JSON payload shapes shared between the HAL
// service and its bus clients.
package types

// Kind names a capability class on the bus.
type Kind string

const (
	KindLEDArray Kind = "ledarray"
)

// Info is the retained capability description document.
type Info struct {
	SchemaVersion int    `json:"schema_version"`
	Driver        string `json:"driver"`
	Detail        any    `json:"detail,omitempty"`
}

// OKReply acknowledges a control request.
type OKReply struct {
	OK     bool `json:"ok"`
	Result any  `json:"result,omitempty"`
}

// ErrorReply reports a failed control request with its stable error code.
type ErrorReply struct {
	OK     bool   `json:"ok"`
	Code   string `json:"error"`
	Detail string `json:"detail,omitempty"`
}
