package events

// EventType represents the type of an event in the system.
type EventType string

// Event type constants
const (
	// User events
	EventTypeUserRegistered        EventType = "User.Registered"
	EventTypeVerificationSubmitted EventType = "User.VerificationSubmitted"
	EventTypeVerificationDecided   EventType = "User.VerificationDecided"

	// Request events
	EventTypeRequestCreated EventType = "Request.Created"
	EventTypeRequestDecided EventType = "Request.Decided"
	EventTypeRequestClosed  EventType = "Request.Closed"

	// Donation events
	EventTypeDonationRecorded EventType = "Donation.Recorded"
)

// String returns the string representation of the event type.
func (et EventType) String() string {
	return string(et)
}
