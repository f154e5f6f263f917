package engine

import "errors"

// Sentinel errors for rejected inputs. Returned before any mutation is
// attempted.
var (
	ErrInvalidAgentStatus      = errors.New("invalid agent status")
	ErrInvalidTaskStatus       = errors.New("invalid task status")
	ErrInvalidPriority         = errors.New("invalid priority")
	ErrInvalidMessageType      = errors.New("invalid message type")
	ErrInvalidNotificationType = errors.New("invalid notification type")
	ErrInvalidActivityType     = errors.New("invalid activity type")
	ErrInvalidDocumentType     = errors.New("invalid document type")
)
