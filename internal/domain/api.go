package domain

import "context"

// MessagingAPI sends direct messages outside any conversation.
type MessagingAPI interface {
	SendDirect(ctx context.Context, from, to, body string) (MessageReceipt, error)
}

// ConversationAPI is the provider surface scoped to one messaging service:
// conversations, their participants, and their messages.
type ConversationAPI interface {
	ListConversations(ctx context.Context) ([]Conversation, error)
	CreateConversation(ctx context.Context, friendlyName string) (Conversation, error)
	ListParticipants(ctx context.Context, conversationSID string) ([]Participant, error)
	AddParticipant(ctx context.Context, conversationSID, address, proxyAddress string) (Participant, error)
	ListMessages(ctx context.Context, conversationSID string) ([]Message, error)
	CreateMessage(ctx context.Context, conversationSID, author, body string) (Message, error)
}

// CursorStore persists the SID of the last message already answered, keyed by
// conversation. Implementations may be purely in-memory.
type CursorStore interface {
	LoadCursor(ctx context.Context, conversationSID string) (string, error)
	SaveCursor(ctx context.Context, conversationSID, messageSID string) error
}
