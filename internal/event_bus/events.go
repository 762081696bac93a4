package event_bus

const (
	UserRegisteredType        EventType = "user.registered"
	ConfirmationRequestedType EventType = "user.confirmation_requested"
	ImportCompletedType       EventType = "import.completed"
	ImportFailedType          EventType = "import.failed"
)

// UserRegistered is published once a new account is stored.
type UserRegistered struct {
	UserId   int
	Username string
	Email    string
	Role     string
}

// ConfirmationRequested is published when a confirmation link has to be
// (re)sent to an unconfirmed account.
type ConfirmationRequested struct {
	UserId   int
	Username string
	Email    string
}

type ImportCompleted struct {
	// Entity is "activity" or "challenge".
	Entity    string
	Created   int
	Updated   int
	Skipped   int
	Anomalies int
}

type ImportFailed struct {
	Entity string
	Reason string
}
