package domain

// Conversation is a provider-side object grouping messages and participant
// bindings, identified by an opaque SID and a human-readable label.
type Conversation struct {
	SID          string
	FriendlyName string
}

// Participant binds an external address to a conversation together with the
// provider-side proxy address used to reach it.
type Participant struct {
	SID          string
	Address      string
	ProxyAddress string
}

// Message is an immutable provider-held record. The provider returns message
// lists oldest to newest; Index is the provider-assigned position.
type Message struct {
	SID    string
	Author string
	Body   string
	Index  int
}

// MessageReceipt identifies a direct (non-conversation) message accepted by
// the provider.
type MessageReceipt struct {
	SID  string
	Body string
}
