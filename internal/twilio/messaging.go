package twilio

import (
	"context"
	"fmt"
	"net/url"

	"wabridge/internal/domain"
)

// SendDirect sends one outbound message through the Messaging API, outside
// any conversation. Implements domain.MessagingAPI.
func (c *Client) SendDirect(ctx context.Context, from, to, body string) (domain.MessageReceipt, error) {
	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", c.messagingBase, c.accountSID)

	form := url.Values{}
	form.Set("From", from)
	form.Set("To", to)
	form.Set("Body", body)

	var resp directMessageResource
	if err := c.postForm(ctx, endpoint, form, &resp); err != nil {
		return domain.MessageReceipt{}, fmt.Errorf("send direct message: %w", err)
	}

	return domain.MessageReceipt{SID: resp.SID, Body: resp.Body}, nil
}

// --- Messaging API wire types ---

type directMessageResource struct {
	SID    string `json:"sid"`
	From   string `json:"from"`
	To     string `json:"to"`
	Body   string `json:"body"`
	Status string `json:"status"`
}
