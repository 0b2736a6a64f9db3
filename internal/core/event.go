package core

// EventKind is a notification the core emits to the connection.
type EventKind int

const (
	// EventWelcome is the one-time registration greeting.
	EventWelcome EventKind = iota
	// EventToken reveals the resolved session token after the greeting.
	EventToken
	// EventNickChange announces an identity swap; From holds the previous nick.
	EventNickChange
	// EventJoined reports that the session now listens on Channel.
	EventJoined
	// EventNames lists the members of Channel.
	EventNames
	// EventLeft reports that the session was removed from Channel.
	EventLeft
	// EventMessage delivers a polled message From a user to Target.
	EventMessage
	// EventSelfMessage delivers a message the active identity sent to From
	// from somewhere else.
	EventSelfMessage
	// EventPong answers a keepalive.
	EventPong
	// EventError notifies the client about a rejected request.
	EventError
	// EventClosing is the last event of a locally closed session.
	EventClosing
)

// Event is sent to the connection to describe what happened.
// Nick and User snapshot the session's display name and local identifier at
// emission time so the event can be rendered without touching session state.
type Event struct {
	Kind    EventKind
	Nick    string
	User    string
	From    string
	Target  string
	Channel string
	Text    string
	Error   *CoreError
}
