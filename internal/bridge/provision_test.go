package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"testing"

	"wabridge/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

// fakeAPI implements domain.ConversationAPI in memory and counts create calls.
type fakeAPI struct {
	conversations []domain.Conversation
	participants  map[string][]domain.Participant
	messages      map[string][]domain.Message

	createConversationCalls int
	addParticipantCalls     int
	createMessageCalls      int

	listErr   error
	createErr error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		participants: make(map[string][]domain.Participant),
		messages:     make(map[string][]domain.Message),
	}
}

func (f *fakeAPI) ListConversations(context.Context) ([]domain.Conversation, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.conversations, nil
}

func (f *fakeAPI) CreateConversation(_ context.Context, friendlyName string) (domain.Conversation, error) {
	f.createConversationCalls++
	if f.createErr != nil {
		return domain.Conversation{}, f.createErr
	}
	conv := domain.Conversation{
		SID:          fmt.Sprintf("CH%d", len(f.conversations)+1),
		FriendlyName: friendlyName,
	}
	f.conversations = append(f.conversations, conv)
	return conv, nil
}

func (f *fakeAPI) ListParticipants(_ context.Context, conversationSID string) ([]domain.Participant, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.participants[conversationSID], nil
}

func (f *fakeAPI) AddParticipant(_ context.Context, conversationSID, address, proxyAddress string) (domain.Participant, error) {
	f.addParticipantCalls++
	if f.createErr != nil {
		return domain.Participant{}, f.createErr
	}
	p := domain.Participant{
		SID:          fmt.Sprintf("MB%d", f.addParticipantCalls),
		Address:      address,
		ProxyAddress: proxyAddress,
	}
	f.participants[conversationSID] = append(f.participants[conversationSID], p)
	return p, nil
}

func (f *fakeAPI) ListMessages(_ context.Context, conversationSID string) ([]domain.Message, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.messages[conversationSID], nil
}

func (f *fakeAPI) CreateMessage(_ context.Context, conversationSID, author, body string) (domain.Message, error) {
	f.createMessageCalls++
	if f.createErr != nil {
		return domain.Message{}, f.createErr
	}
	msg := domain.Message{
		SID:    fmt.Sprintf("IM%d", f.createMessageCalls+100),
		Author: author,
		Body:   body,
		Index:  len(f.messages[conversationSID]),
	}
	f.messages[conversationSID] = append(f.messages[conversationSID], msg)
	return msg, nil
}

// --- FindOrCreateConversation ---

func TestFindOrCreateConversation_ReusesExisting(t *testing.T) {
	api := newFakeAPI()
	api.conversations = []domain.Conversation{
		{SID: "CH0", FriendlyName: "Other"},
		{SID: "c1", FriendlyName: "Friendly Conversation"},
		{SID: "CH9", FriendlyName: "Friendly Conversation"},
	}

	conv, err := FindOrCreateConversation(context.Background(), api, "Friendly Conversation", testLogger())
	if err != nil {
		t.Fatalf("FindOrCreateConversation: %v", err)
	}
	if conv.SID != "c1" {
		t.Errorf("expected first match c1, got %q", conv.SID)
	}
	if api.createConversationCalls != 0 {
		t.Errorf("expected 0 create calls, got %d", api.createConversationCalls)
	}
}

func TestFindOrCreateConversation_CreatesWhenAbsent(t *testing.T) {
	api := newFakeAPI()
	api.conversations = []domain.Conversation{{SID: "CH0", FriendlyName: "Other"}}

	conv, err := FindOrCreateConversation(context.Background(), api, "Friendly Conversation", testLogger())
	if err != nil {
		t.Fatalf("FindOrCreateConversation: %v", err)
	}
	if conv.FriendlyName != "Friendly Conversation" {
		t.Errorf("conversation = %+v", conv)
	}
	if api.createConversationCalls != 1 {
		t.Errorf("expected exactly 1 create call, got %d", api.createConversationCalls)
	}
}

func TestFindOrCreateConversation_ListErrorPropagates(t *testing.T) {
	api := newFakeAPI()
	api.listErr = errors.New("network down")

	if _, err := FindOrCreateConversation(context.Background(), api, "x", testLogger()); err == nil {
		t.Fatal("expected error")
	}
	if api.createConversationCalls != 0 {
		t.Errorf("no create call expected after list failure, got %d", api.createConversationCalls)
	}
}

// --- EnsureParticipant ---

func TestEnsureParticipant_NoOpWhenPresent(t *testing.T) {
	api := newFakeAPI()
	conv := domain.Conversation{SID: "CH1"}
	api.participants["CH1"] = []domain.Participant{
		{SID: "MB0", Address: "whatsapp:+1555", ProxyAddress: "whatsapp:+1415"},
	}

	err := EnsureParticipant(context.Background(), api, conv, "whatsapp:+1555", "whatsapp:+1415", testLogger())
	if err != nil {
		t.Fatalf("EnsureParticipant: %v", err)
	}
	if api.addParticipantCalls != 0 {
		t.Errorf("expected 0 create calls, got %d", api.addParticipantCalls)
	}
}

func TestEnsureParticipant_CreatesWhenAbsent(t *testing.T) {
	api := newFakeAPI()
	conv := domain.Conversation{SID: "CH1"}
	api.participants["CH1"] = []domain.Participant{
		{SID: "MB0", Address: "whatsapp:+1999", ProxyAddress: "whatsapp:+1415"},
	}

	err := EnsureParticipant(context.Background(), api, conv, "whatsapp:+1555", "whatsapp:+1415", testLogger())
	if err != nil {
		t.Fatalf("EnsureParticipant: %v", err)
	}
	if api.addParticipantCalls != 1 {
		t.Errorf("expected exactly 1 create call, got %d", api.addParticipantCalls)
	}
	if got := api.participants["CH1"][1].Address; got != "whatsapp:+1555" {
		t.Errorf("bound address = %q", got)
	}
}

func TestEnsureParticipant_CreateErrorPropagates(t *testing.T) {
	api := newFakeAPI()
	api.createErr = errors.New("quota exceeded")

	err := EnsureParticipant(context.Background(), api, domain.Conversation{SID: "CH1"}, "whatsapp:+1555", "whatsapp:+1415", testLogger())
	if err == nil {
		t.Fatal("expected error when provider rejects the binding")
	}
}
