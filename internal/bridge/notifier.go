package bridge

import (
	"context"
	"log/slog"

	"wabridge/internal/domain"
)

// SendStartupNotice sends one direct message through the Messaging API. It is
// called unconditionally on every run, so a restart sends the notice again;
// callers that want to suppress it skip the call rather than dedupe here.
func SendStartupNotice(ctx context.Context, api domain.MessagingAPI, from, to, body string, logger *slog.Logger) (domain.MessageReceipt, error) {
	receipt, err := api.SendDirect(ctx, from, to, body)
	if err != nil {
		return domain.MessageReceipt{}, err
	}
	logger.Info("startup notice sent", "sid", receipt.SID, "to", to)
	return receipt, nil
}
