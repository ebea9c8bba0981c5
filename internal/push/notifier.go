package push

import (
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/coladapo/wealthincome/internal/model"
)

// EventPublisher fans trading events out to JetStream so the push gateway
// and any persistence consumers can pick them up. Implements sim.Notifier.
type EventPublisher struct {
	js     nats.JetStreamContext
	logger *zap.Logger
}

func NewEventPublisher(js nats.JetStreamContext, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{js: js, logger: logger}
}

// Signal publishes a freshly generated signal.
func (p *EventPublisher) Signal(sig *model.Signal) {
	p.publish("paper.signal."+sig.Symbol, sig)
}

// Fill publishes a filled order, together with the closed-trade record when
// the fill closed a position.
func (p *EventPublisher) Fill(o *model.Order, rec *model.TradeRecord) {
	p.publish("paper.fill."+o.Symbol, struct {
		Order *model.Order       `json:"order"`
		Trade *model.TradeRecord `json:"trade,omitempty"`
	}{o, rec})
}

// Alert publishes a triggered stop/take/price alert.
func (p *EventPublisher) Alert(kind, symbol string, price decimal.Decimal) {
	p.publish("paper.alert."+symbol, struct {
		Kind      string          `json:"kind"`
		Symbol    string          `json:"symbol"`
		Price     decimal.Decimal `json:"price"`
		Timestamp time.Time       `json:"ts"`
	}{kind, symbol, price, time.Now()})
}

func (p *EventPublisher) publish(subject string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		p.logger.Error("failed to marshal event", zap.String("subject", subject), zap.Error(err))
		return
	}
	if _, err := p.js.Publish(subject, data); err != nil {
		p.logger.Error("failed to publish event", zap.String("subject", subject), zap.Error(err))
	}
}
