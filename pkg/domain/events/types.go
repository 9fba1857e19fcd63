package events

// EventTypes maps each event type to a constructor, used by the broker-backed
// buses to decode payloads.
var EventTypes = map[EventType]func() Event{
	EventTypeUserRegistered:        func() Event { return &UserRegistered{} },
	EventTypeVerificationSubmitted: func() Event { return &VerificationSubmitted{} },
	EventTypeVerificationDecided:   func() Event { return &VerificationDecided{} },
	EventTypeRequestCreated:        func() Event { return &RequestCreated{} },
	EventTypeRequestDecided:        func() Event { return &RequestDecided{} },
	EventTypeRequestClosed:         func() Event { return &RequestClosed{} },
	EventTypeDonationRecorded:      func() Event { return &DonationRecorded{} },
}
