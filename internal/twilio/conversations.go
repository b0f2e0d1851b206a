package twilio

import (
	"context"
	"fmt"
	"net/url"

	"wabridge/internal/domain"
)

// listPageSize is the page size requested on list calls. Conversation and
// participant lists are read as a single page and assumed to fit. The message
// list is fetched as the newest page in descending order and reversed, so the
// tail stays correct however large the conversation grows; older pages are
// never walked because only the tail is inspected.
const listPageSize = 50

// ListConversations returns the conversations under the configured service.
func (c *Client) ListConversations(ctx context.Context) ([]domain.Conversation, error) {
	endpoint := fmt.Sprintf("%s/Services/%s/Conversations?PageSize=%d", c.conversationsBase, c.serviceSID, listPageSize)

	var resp conversationListResponse
	if err := c.get(ctx, endpoint, &resp); err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}

	conversations := make([]domain.Conversation, 0, len(resp.Conversations))
	for _, item := range resp.Conversations {
		conversations = append(conversations, domain.Conversation{
			SID:          item.SID,
			FriendlyName: item.FriendlyName,
		})
	}
	return conversations, nil
}

// CreateConversation creates a conversation with the given friendly name.
func (c *Client) CreateConversation(ctx context.Context, friendlyName string) (domain.Conversation, error) {
	endpoint := fmt.Sprintf("%s/Services/%s/Conversations", c.conversationsBase, c.serviceSID)

	form := url.Values{}
	form.Set("FriendlyName", friendlyName)

	var resp conversationResource
	if err := c.postForm(ctx, endpoint, form, &resp); err != nil {
		return domain.Conversation{}, fmt.Errorf("create conversation: %w", err)
	}

	return domain.Conversation{SID: resp.SID, FriendlyName: resp.FriendlyName}, nil
}

// ListParticipants returns the participants bound to a conversation.
func (c *Client) ListParticipants(ctx context.Context, conversationSID string) ([]domain.Participant, error) {
	endpoint := fmt.Sprintf("%s/Services/%s/Conversations/%s/Participants?PageSize=%d",
		c.conversationsBase, c.serviceSID, conversationSID, listPageSize)

	var resp participantListResponse
	if err := c.get(ctx, endpoint, &resp); err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}

	participants := make([]domain.Participant, 0, len(resp.Participants))
	for _, item := range resp.Participants {
		participants = append(participants, domain.Participant{
			SID:          item.SID,
			Address:      item.MessagingBinding.Address,
			ProxyAddress: item.MessagingBinding.ProxyAddress,
		})
	}
	return participants, nil
}

// AddParticipant binds address to the conversation with proxyAddress as the
// provider-side sending number.
func (c *Client) AddParticipant(ctx context.Context, conversationSID, address, proxyAddress string) (domain.Participant, error) {
	endpoint := fmt.Sprintf("%s/Services/%s/Conversations/%s/Participants",
		c.conversationsBase, c.serviceSID, conversationSID)

	form := url.Values{}
	form.Set("MessagingBinding.Address", address)
	form.Set("MessagingBinding.ProxyAddress", proxyAddress)

	var resp participantResource
	if err := c.postForm(ctx, endpoint, form, &resp); err != nil {
		return domain.Participant{}, fmt.Errorf("add participant: %w", err)
	}

	return domain.Participant{
		SID:          resp.SID,
		Address:      resp.MessagingBinding.Address,
		ProxyAddress: resp.MessagingBinding.ProxyAddress,
	}, nil
}

// ListMessages returns the newest page of the conversation's messages,
// oldest to newest; the last element is the most recent. Twilio is asked for
// descending order so the page holds the newest messages, then the page is
// reversed to keep the oldest-to-newest contract.
func (c *Client) ListMessages(ctx context.Context, conversationSID string) ([]domain.Message, error) {
	endpoint := fmt.Sprintf("%s/Services/%s/Conversations/%s/Messages?Order=desc&PageSize=%d",
		c.conversationsBase, c.serviceSID, conversationSID, listPageSize)

	var resp messageListResponse
	if err := c.get(ctx, endpoint, &resp); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	messages := make([]domain.Message, len(resp.Messages))
	for i, item := range resp.Messages {
		messages[len(resp.Messages)-1-i] = domain.Message{
			SID:    item.SID,
			Author: item.Author,
			Body:   item.Body,
			Index:  item.Index,
		}
	}
	return messages, nil
}

// CreateMessage appends a message to the conversation.
func (c *Client) CreateMessage(ctx context.Context, conversationSID, author, body string) (domain.Message, error) {
	endpoint := fmt.Sprintf("%s/Services/%s/Conversations/%s/Messages",
		c.conversationsBase, c.serviceSID, conversationSID)

	form := url.Values{}
	form.Set("Author", author)
	form.Set("Body", body)

	var resp messageResource
	if err := c.postForm(ctx, endpoint, form, &resp); err != nil {
		return domain.Message{}, fmt.Errorf("create message: %w", err)
	}

	return domain.Message{SID: resp.SID, Author: resp.Author, Body: resp.Body, Index: resp.Index}, nil
}

// --- Conversations API wire types ---

type conversationResource struct {
	SID          string `json:"sid"`
	AccountSID   string `json:"account_sid"`
	FriendlyName string `json:"friendly_name"`
	State        string `json:"state"`
	DateCreated  string `json:"date_created"`
}

type conversationListResponse struct {
	Conversations []conversationResource `json:"conversations"`
}

type participantResource struct {
	SID              string           `json:"sid"`
	Identity         string           `json:"identity"`
	MessagingBinding messagingBinding `json:"messaging_binding"`
}

type messagingBinding struct {
	Address      string `json:"address"`
	ProxyAddress string `json:"proxy_address"`
	Type         string `json:"type"`
}

type participantListResponse struct {
	Participants []participantResource `json:"participants"`
}

type messageResource struct {
	SID         string `json:"sid"`
	Author      string `json:"author"`
	Body        string `json:"body"`
	Index       int    `json:"index"`
	DateCreated string `json:"date_created"`
}

type messageListResponse struct {
	Messages []messageResource `json:"messages"`
}
