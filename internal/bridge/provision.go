// Package bridge holds the bridge's own logic: provisioning the conversation,
// the one-shot startup notice, and the poll loop that answers inbound
// messages. All durable state is provider-held; the only thing kept here is
// the poll cursor.
package bridge

import (
	"context"
	"fmt"
	"log/slog"

	"wabridge/internal/domain"
)

// FindOrCreateConversation returns the first conversation whose friendly name
// exactly equals label, creating one only when no match exists. Provider
// order breaks ties. At most one create call per invocation.
func FindOrCreateConversation(ctx context.Context, api domain.ConversationAPI, label string, logger *slog.Logger) (domain.Conversation, error) {
	conversations, err := api.ListConversations(ctx)
	if err != nil {
		return domain.Conversation{}, err
	}

	for _, conv := range conversations {
		if conv.FriendlyName == label {
			logger.Info("reusing existing conversation", "sid", conv.SID, "friendly_name", label)
			return conv, nil
		}
	}

	conv, err := api.CreateConversation(ctx, label)
	if err != nil {
		return domain.Conversation{}, err
	}
	logger.Info("created new conversation", "sid", conv.SID, "friendly_name", label)
	return conv, nil
}

// EnsureParticipant binds address to the conversation unless a participant
// with that bound address already exists. Both addresses must already be
// normalized; membership is an exact string match. A rejected create is
// returned as-is so startup fails instead of running with nobody wired in.
func EnsureParticipant(ctx context.Context, api domain.ConversationAPI, conv domain.Conversation, address, proxyAddress string, logger *slog.Logger) error {
	participants, err := api.ListParticipants(ctx, conv.SID)
	if err != nil {
		return err
	}

	for _, p := range participants {
		if p.Address == address {
			logger.Info("participant already in conversation", "address", address)
			return nil
		}
	}

	if _, err := api.AddParticipant(ctx, conv.SID, address, proxyAddress); err != nil {
		return fmt.Errorf("add participant %s: %w", address, err)
	}
	logger.Info("participant added to conversation", "address", address, "proxy_address", proxyAddress)
	return nil
}
