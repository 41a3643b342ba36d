package notify

import (
	"context"

	"github.com/yeomjw0907/catchdeal/internal/model"
)

// Notifier delivers deal alerts.
type Notifier interface {
	// Send delivers a notification for one product.
	//
	// reason describes why the alert fired (e.g. "Deal Purchased",
	// "Deal Found"). toEmail is the recipient address.
	Send(ctx context.Context, product *model.ScannedProduct, reason string, toEmail string) error
}
