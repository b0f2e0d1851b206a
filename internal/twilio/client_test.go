package twilio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func testClient(messagingURL, conversationsURL string) *Client {
	return NewClient(ClientConfig{
		AccountSID:        "AC123",
		APIKeySID:         "SK123",
		APIKeySecret:      "secret",
		ServiceSID:        "IS123",
		Logger:            testLogger(),
		MessagingBase:     messagingURL,
		ConversationsBase: conversationsURL,
	})
}

func TestSendDirect(t *testing.T) {
	var gotPath, gotFrom, gotTo, gotBody string
	var gotUser, gotPass string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUser, gotPass, _ = r.BasicAuth()
		r.ParseForm()
		gotFrom = r.PostForm.Get("From")
		gotTo = r.PostForm.Get("To")
		gotBody = r.PostForm.Get("Body")

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"sid": "SM1", "body": gotBody, "status": "queued"})
	}))
	defer srv.Close()

	c := testClient(srv.URL, srv.URL)
	receipt, err := c.SendDirect(context.Background(), "whatsapp:+1415", "whatsapp:+1555", "hello")
	if err != nil {
		t.Fatalf("SendDirect: %v", err)
	}

	if gotPath != "/Accounts/AC123/Messages.json" {
		t.Errorf("path = %q", gotPath)
	}
	if gotUser != "SK123" || gotPass != "secret" {
		t.Errorf("basic auth = %q:%q", gotUser, gotPass)
	}
	if gotFrom != "whatsapp:+1415" || gotTo != "whatsapp:+1555" || gotBody != "hello" {
		t.Errorf("form = from %q to %q body %q", gotFrom, gotTo, gotBody)
	}
	if receipt.SID != "SM1" {
		t.Errorf("receipt sid = %q", receipt.SID)
	}
}

func TestListConversations(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/Services/IS123/Conversations" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"conversations": []map[string]any{
				{"sid": "CH1", "friendly_name": "Friendly Conversation"},
				{"sid": "CH2", "friendly_name": "Other"},
			},
		})
	}))
	defer srv.Close()

	c := testClient(srv.URL, srv.URL)
	conversations, err := c.ListConversations(context.Background())
	if err != nil {
		t.Fatalf("ListConversations: %v", err)
	}
	if len(conversations) != 2 {
		t.Fatalf("got %d conversations", len(conversations))
	}
	if conversations[0].SID != "CH1" || conversations[0].FriendlyName != "Friendly Conversation" {
		t.Errorf("first conversation = %+v", conversations[0])
	}
}

func TestAddParticipant(t *testing.T) {
	var gotAddress, gotProxy string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		gotAddress = r.PostForm.Get("MessagingBinding.Address")
		gotProxy = r.PostForm.Get("MessagingBinding.ProxyAddress")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{
			"sid": "MB1",
			"messaging_binding": map[string]any{
				"address":       gotAddress,
				"proxy_address": gotProxy,
			},
		})
	}))
	defer srv.Close()

	c := testClient(srv.URL, srv.URL)
	p, err := c.AddParticipant(context.Background(), "CH1", "whatsapp:+1555", "whatsapp:+1415")
	if err != nil {
		t.Fatalf("AddParticipant: %v", err)
	}
	if gotAddress != "whatsapp:+1555" || gotProxy != "whatsapp:+1415" {
		t.Errorf("form = address %q proxy %q", gotAddress, gotProxy)
	}
	if p.Address != "whatsapp:+1555" {
		t.Errorf("participant = %+v", p)
	}
}

func TestListMessages_ReversesDescendingPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("Order"); got != "desc" {
			t.Errorf("Order = %q, want desc", got)
		}
		// Twilio serves the page newest first.
		json.NewEncoder(w).Encode(map[string]any{
			"messages": []map[string]any{
				{"sid": "IM2", "author": "system", "body": "reply", "index": 1},
				{"sid": "IM1", "author": "whatsapp:+1555", "body": "hi", "index": 0},
			},
		})
	}))
	defer srv.Close()

	c := testClient(srv.URL, srv.URL)
	messages, err := c.ListMessages(context.Background(), "CH1")
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("got %d messages", len(messages))
	}
	if first := messages[0]; first.SID != "IM1" {
		t.Errorf("first message = %+v, want oldest IM1", first)
	}
	if last := messages[len(messages)-1]; last.SID != "IM2" || last.Author != "system" {
		t.Errorf("last message = %+v, want newest IM2", last)
	}
}

func TestListMessages_NewestVisibleBeyondOnePage(t *testing.T) {
	// 60 messages, IM60 newest. The server honors Order and PageSize the way
	// Twilio does, so an oldest-first single page would end at IM50 and hide
	// every newer message from the poller.
	const total = 60

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pageSize, err := strconv.Atoi(r.URL.Query().Get("PageSize"))
		if err != nil || pageSize < 1 {
			t.Fatalf("bad PageSize %q", r.URL.Query().Get("PageSize"))
		}

		page := make([]map[string]any, 0, pageSize)
		switch r.URL.Query().Get("Order") {
		case "desc":
			for i := total; i > 0 && len(page) < pageSize; i-- {
				page = append(page, map[string]any{
					"sid": fmt.Sprintf("IM%d", i), "author": "whatsapp:+1555", "index": i - 1,
				})
			}
		default: // Twilio defaults to ascending
			for i := 1; i <= total && len(page) < pageSize; i++ {
				page = append(page, map[string]any{
					"sid": fmt.Sprintf("IM%d", i), "author": "whatsapp:+1555", "index": i - 1,
				})
			}
		}
		json.NewEncoder(w).Encode(map[string]any{"messages": page})
	}))
	defer srv.Close()

	c := testClient(srv.URL, srv.URL)
	messages, err := c.ListMessages(context.Background(), "CH1")
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(messages) != 50 {
		t.Fatalf("got %d messages, want one 50-message page", len(messages))
	}
	if last := messages[len(messages)-1]; last.SID != "IM60" {
		t.Errorf("last message = %q, want the newest IM60", last.SID)
	}
	if first := messages[0]; first.SID != "IM11" {
		t.Errorf("first message = %q, want IM11 (oldest of the newest page)", first.SID)
	}
}

func TestCreateMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{
			"sid":    "IM9",
			"author": r.PostForm.Get("Author"),
			"body":   r.PostForm.Get("Body"),
			"index":  3,
		})
	}))
	defer srv.Close()

	c := testClient(srv.URL, srv.URL)
	msg, err := c.CreateMessage(context.Background(), "CH1", "system", "ack")
	if err != nil {
		t.Fatalf("CreateMessage: %v", err)
	}
	if msg.SID != "IM9" || msg.Author != "system" || msg.Body != "ack" {
		t.Errorf("message = %+v", msg)
	}
}

func TestAPIError_SurfacesProviderMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"code":    50407,
			"message": "Invalid messaging binding address",
		})
	}))
	defer srv.Close()

	c := testClient(srv.URL, srv.URL)
	_, err := c.AddParticipant(context.Background(), "CH1", "bogus", "bogus")
	if err == nil {
		t.Fatal("expected error")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if apiErr.StatusCode != http.StatusBadRequest || apiErr.Code != 50407 {
		t.Errorf("apiErr = %+v", apiErr)
	}
}
