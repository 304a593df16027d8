package cli

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"strings"

	"github.com/rileyhilliard/gpubench/internal/errors"
)

// machineMode is set by --json. Commands print a JSONEnvelope instead of
// tables, and the progress view and phase lines are suppressed.
var machineMode bool

// JSONEnvelope is the shape of every --json response.
type JSONEnvelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *JSONError  `json:"error,omitempty"`
}

// JSONError is the error half of a failed --json response.
type JSONError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
}

// Machine-readable error codes.
const (
	ErrCodeConfigNotFound    = "CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid     = "CONFIG_INVALID"
	ErrCodeSSHConnectionFail = "SSH_CONNECTION_FAILED"
	ErrCodeCommandFailed     = "COMMAND_FAILED"
	ErrCodeTimeout           = "TIMEOUT"
	ErrCodeParseFailed       = "PARSE_FAILED"
	ErrCodeReportFailed      = "REPORT_WRITE_FAILED"
	ErrCodeLockHeld          = "LOCK_HELD"
	ErrCodeUnknown           = "UNKNOWN"
)

var jsonCodes = map[string]string{
	errors.ErrConfig:  ErrCodeConfigInvalid,
	errors.ErrSSH:     ErrCodeSSHConnectionFail,
	errors.ErrExec:    ErrCodeCommandFailed,
	errors.ErrTimeout: ErrCodeTimeout,
	errors.ErrParse:   ErrCodeParseFailed,
	errors.ErrReport:  ErrCodeReportFailed,
	errors.ErrLock:    ErrCodeLockHeld,
}

// WriteJSONSuccess writes data wrapped in a successful envelope.
func WriteJSONSuccess(w io.Writer, data interface{}) error {
	return writeJSONEnvelope(w, JSONEnvelope{Success: true, Data: data})
}

// WriteJSONFromError writes err as a failed envelope.
func WriteJSONFromError(w io.Writer, err error) error {
	return writeJSONEnvelope(w, JSONEnvelope{Error: ErrorToJSON(err)})
}

func writeJSONEnvelope(w io.Writer, env JSONEnvelope) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(env)
}

// ErrorToJSON maps err to a JSONError. Structured errors keep their message
// and suggestion; anything else is UNKNOWN with the raw text.
func ErrorToJSON(err error) *JSONError {
	if err == nil {
		return nil
	}

	var gbErr *errors.Error
	if !stderrors.As(err, &gbErr) {
		return &JSONError{Code: ErrCodeUnknown, Message: err.Error()}
	}
	return &JSONError{
		Code:       mapErrorCode(gbErr.Code, gbErr.Message),
		Message:    gbErr.Message,
		Suggestion: gbErr.Suggestion,
	}
}

func mapErrorCode(internalCode, message string) string {
	if internalCode == errors.ErrConfig && strings.Contains(strings.ToLower(message), "not found") {
		return ErrCodeConfigNotFound
	}
	if code, ok := jsonCodes[internalCode]; ok {
		return code
	}
	return ErrCodeUnknown
}
