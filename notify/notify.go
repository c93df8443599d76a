package notify

import (
	"context"
	"log"

	"github.com/yourusername/peptide-shop/models"
)

// Notifier dispatches customer-facing order notifications. The real email
// transport lives outside this service; callers must pass the resend cooldown
// gate before invoking it.
type Notifier interface {
	SendOrderConfirmation(ctx context.Context, order *models.Order) error
}

// LogNotifier is the default Notifier: it records the dispatch and leaves
// delivery to the downstream mail collaborator.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) SendOrderConfirmation(ctx context.Context, order *models.Order) error {
	log.Printf("order confirmation queued for order %s (%s)", order.OrderNo, order.Email)
	return nil
}
