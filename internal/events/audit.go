package events

import (
	"context"
	"time"

	"github.com/alocode/restopos/internal/domain"
	"github.com/alocode/restopos/internal/repository"
	"github.com/alocode/restopos/pkg/common"
	"github.com/alocode/restopos/pkg/metrics"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// AuditRecorder writes every workflow event to the operator log
type AuditRecorder struct {
	repo repository.AuditRepository
}

func NewAuditRecorder(repo repository.AuditRepository) *AuditRecorder {
	return &AuditRecorder{repo: repo}
}

// Attach subscribes the recorder and the metric counters to all topics
func (a *AuditRecorder) Attach(bus *Bus) error {
	for _, topic := range OrderTopics {
		topic := topic
		if err := bus.SubscribeAsync(topic, func(e OrderEvent) { a.onOrder(topic, e) }); err != nil {
			return err
		}
	}
	for _, topic := range RegisterTopics {
		topic := topic
		if err := bus.SubscribeAsync(topic, func(e RegisterEvent) { a.onRegister(topic, e) }); err != nil {
			return err
		}
	}
	return nil
}

type orderAudit struct {
	OrderID   int64             `json:"order_id,string"`
	Type      domain.OrderType  `json:"type"`
	From      domain.OrderState `json:"from,omitempty"`
	To        domain.OrderState `json:"to"`
	Total     string            `json:"total"`
	Surcharge string            `json:"surcharge"`
	Lines     int               `json:"lines"`
	TableID   *int64            `json:"table_id,string,omitempty"`
	SessionID int64             `json:"session_id,string"`
}

type registerAudit struct {
	SessionID      int64  `json:"session_id,string"`
	BusinessDate   string `json:"business_date"`
	OpeningFloat   string `json:"opening_float"`
	ClosingBalance string `json:"closing_balance,omitempty"`
	Sales          string `json:"sales,omitempty"`
	Surcharges     string `json:"surcharges,omitempty"`
	Auto           bool   `json:"auto,omitempty"`
	Cancelled      int    `json:"cancelled,omitempty"`
}

func (a *AuditRecorder) onOrder(topic string, e OrderEvent) {
	metrics.Inc(topic, 1)
	if topic == TopicOrderTransitioned {
		metrics.Inc("order:"+string(e.To), 1)
	}
	a.write(topic, e.ActorID, e.At, orderAudit{
		OrderID:   e.Order.ID,
		Type:      e.Order.Type,
		From:      e.From,
		To:        e.To,
		Total:     e.Order.Total.StringFixed(2),
		Surcharge: e.Order.Surcharge.StringFixed(2),
		Lines:     len(e.Order.Lines),
		TableID:   e.Order.TableID,
		SessionID: e.Order.SessionID,
	})
}

func (a *AuditRecorder) onRegister(topic string, e RegisterEvent) {
	metrics.Inc(topic, 1)
	desc := registerAudit{
		SessionID:    e.Session.ID,
		BusinessDate: e.Session.BusinessDate,
		OpeningFloat: e.Session.OpeningFloat.StringFixed(2),
		Auto:         e.Auto,
		Cancelled:    e.Cancelled,
	}
	if r := e.Reconciliation; r != nil {
		desc.ClosingBalance = r.ClosingBalance.StringFixed(2)
		desc.Sales = r.TotalSales.StringFixed(2)
		desc.Surcharges = r.TotalSurcharge.StringFixed(2)
	}
	a.write(topic, e.ActorID, e.At, desc)
}

func (a *AuditRecorder) write(topic string, actor int64, at time.Time, desc interface{}) {
	body, err := json.MarshalToString(desc)
	if err != nil {
		zap.L().Error("audit marshal error", zap.String("topic", topic), zap.Error(err), zap.String("namespace", "events"))
		return
	}
	if at.IsZero() {
		at = time.Now()
	}
	log := &domain.SysOprLog{
		ID:        common.UUIDint64(),
		OprID:     actor,
		OptAction: topic,
		OptDesc:   body,
		OptTime:   at,
	}
	if err := a.repo.Create(context.Background(), log); err != nil {
		zap.L().Error("audit write error", zap.String("topic", topic), zap.Error(err), zap.String("namespace", "events"))
	}
}
