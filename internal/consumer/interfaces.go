package consumer

import (
	"github.com/botmetrics/botmetrics/internal/domain"
)

// WebhookNormalizer turns one raw webhook body into a canonical event
// plus the recipient pair used to resolve the owning bot user.
type WebhookNormalizer interface {
	Normalize(provider domain.Provider, body []byte) (*domain.NormalizedEvent, *domain.RecipientInfo, error)
}
