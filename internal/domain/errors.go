package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by state stores when a key holds no value.
	ErrNotFound = errors.New("key not found")
	// ErrSessionNotFound is returned when no quiz is in progress for a user.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrUserNotFound indicates the user record does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrNotAuthenticated is returned when no user is logged in.
	ErrNotAuthenticated = errors.New("no active session")
	// ErrMissionNotFound indicates the mission is not part of the active rotation.
	ErrMissionNotFound = errors.New("mission not in active rotation")
	// ErrIncidentNotFound indicates an unknown incident id.
	ErrIncidentNotFound = errors.New("incident not found")
	// ErrProofRequired is returned when a proof mission is completed without verification.
	ErrProofRequired = errors.New("mission requires photographic proof")
	// ErrQuizNotFinished is returned when a result is requested mid-quiz.
	ErrQuizNotFinished = errors.New("quiz not finished")
	// ErrWorkflowBusy is returned when a proof workflow is already in flight.
	ErrWorkflowBusy = errors.New("proof workflow already active")
	// ErrInvalidTransition is returned for proof workflow events the current state does not accept.
	ErrInvalidTransition = errors.New("invalid proof workflow transition")
	// ErrForbidden is returned when the user's role does not allow the action.
	ErrForbidden = errors.New("forbidden")
	// ErrOracleUnavailable is returned by the oracle when it is not configured.
	ErrOracleUnavailable = errors.New("oracle unavailable")
)

// Fallback texts shown when the oracle cannot be reached or answers garbage.
const (
	FallbackVerificationReason = "Falha na comunicação com a IA."
	FallbackAnalysis           = "Failed to perform AI analysis at this time. Check API Key configuration."
	FallbackChecklistItem      = "Erro ao gerar checklist via IA"
	VerifiedMessage            = "Comprovação validada pela IA!"
	CameraUnavailableMessage   = "Câmera bloqueada ou indisponível."
)

// ValidationError is a user-facing form error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// Invalid builds a ValidationError.
func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// DeviceError reports that the capture device could not be used.
type DeviceError struct {
	Op  string
	Err error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("camera %s: %v", e.Op, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }
