package fault

import (
	"errors"
	"strings"
)

type Remedy string

const (
	RemedyNone         Remedy = ""
	RemedyOpenPicker   Remedy = "open-credential-picker"
	RemedyLowerQuality Remedy = "lower-quality"
	RemedyRetry        Remedy = "retry"
	RemedyFixInput     Remedy = "fix-input"
)

// Notice is what a view layer shows after a failed action.
// Persistent notices belong in a banner, the rest in a toast.
type Notice struct {
	Kind       string `json:"kind"`
	Message    string `json:"message"`
	Remedy     Remedy `json:"remedy,omitempty"`
	Persistent bool   `json:"persistent"`
}

func Describe(err error) Notice {
	if err == nil {
		return Notice{}
	}

	kind := KindOf(err)
	n := Notice{Kind: kind.String()}

	switch kind {
	case Configuration:
		n.Message = "Not connected: no usable Gemini API key. Enter a key or pick one from the host."
		n.Remedy = RemedyOpenPicker
		n.Persistent = true
	case Entitlement:
		n.Message = "This quality tier needs a billing-enabled API key. Lower the quality to Standard or use a paid key."
		n.Remedy = RemedyLowerQuality
	case EmptyResult:
		n.Message = "The model answered but returned no usable result. Try again or adjust the prompt."
		n.Remedy = RemedyRetry
	case Validation:
		n.Message = "Invalid input: " + innerMessage(err)
		n.Remedy = RemedyFixInput
	default:
		n.Message = "Network or rate-limit problem while talking to the model. Please retry in a moment."
		n.Remedy = RemedyRetry
	}
	return n
}

func innerMessage(err error) string {
	var fe *Error
	if errors.As(err, &fe) && fe.Err != nil {
		return strings.TrimSpace(fe.Err.Error())
	}
	return strings.TrimSpace(err.Error())
}
