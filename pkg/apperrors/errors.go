package apperrors

import "github.com/pkg/errors"

// Error kinds produced by an orchestration run. Every kind is terminal for the
// run that produced it; none of them is retried automatically.
var (
	ErrQuoteUnavailable       = errors.New("swap quote unavailable")
	ErrGasPriceUnavailable    = errors.New("destination gas price unavailable")
	ErrGasEstimationFailed    = errors.New("destination gas estimation failed")
	ErrBridgeQuoteUnavailable = errors.New("bridge quote unavailable")
	ErrSubmissionFailed       = errors.New("bridge submission failed")
	ErrStaleRun               = errors.New("run result is stale")
)

var (
	ErrInvalidRequest = errors.New("invalid swap request")
	ErrInvalidConfig  = errors.New("invalid configuration")
	ErrTokenNotFound  = errors.New("token not found")
	ErrNotFound       = errors.New("not found")
)

// Kind returns the sentinel an error chain was built from, or nil when the
// error does not carry one of the known kinds.
func Kind(err error) error {
	for _, kind := range []error{
		ErrQuoteUnavailable,
		ErrGasPriceUnavailable,
		ErrGasEstimationFailed,
		ErrBridgeQuoteUnavailable,
		ErrSubmissionFailed,
		ErrStaleRun,
		ErrInvalidRequest,
		ErrInvalidConfig,
		ErrTokenNotFound,
		ErrNotFound,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// UserMessage renders err as a sentence that names the stage which failed.
func UserMessage(err error) string {
	switch Kind(err) {
	case ErrQuoteUnavailable:
		return "Could not get a swap quote from the quoting service. Try again in a moment."
	case ErrGasPriceUnavailable:
		return "Destination chain fee data is unavailable, so the gas budget cannot be sized safely."
	case ErrGasEstimationFailed:
		return "Gas estimation for the destination call failed. The swap would likely revert."
	case ErrBridgeQuoteUnavailable:
		return "The bridge could not quote this route or amount."
	case ErrSubmissionFailed:
		return "Submitting the bridge transaction failed."
	case ErrInvalidRequest:
		return "The swap request is invalid: " + err.Error()
	case ErrInvalidConfig:
		return "Configuration problem: " + err.Error()
	case ErrTokenNotFound:
		return "Unknown token: " + err.Error()
	case nil:
		if err == nil {
			return ""
		}
	}
	return err.Error()
}
