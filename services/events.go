package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/plantbazaar/backend/kafka"
	"github.com/plantbazaar/backend/models"
	aws_pkg "github.com/plantbazaar/backend/pkg/aws"
)

// EventPublisher fans order events out to kafka and, when configured,
// SNS. Both legs are best-effort: a publish failure is logged and never
// fails the originating request.
type EventPublisher struct {
	producer    kafka.ProducerAPI
	sns         aws_pkg.SNSPublisher
	snsTopicARN string
}

func NewEventPublisher(producer kafka.ProducerAPI, sns aws_pkg.SNSPublisher, snsTopicARN string) *EventPublisher {
	return &EventPublisher{
		producer:    producer,
		sns:         sns,
		snsTopicARN: snsTopicARN,
	}
}

// PublishOrderEvent emits one event. Safe to call on a nil publisher.
func (p *EventPublisher) PublishOrderEvent(ctx context.Context, eventType string, order *models.Order) {
	if p == nil {
		return
	}

	evt := models.OrderEvent{
		EventID:     uuid.NewString(),
		Type:        eventType,
		OrderID:     order.OrderID,
		UserID:      order.UserID,
		Status:      order.Status,
		TotalAmount: order.TotalAmount,
		Timestamp:   time.Now(),
	}

	data, err := json.Marshal(evt)
	if err != nil {
		zap.L().Error("Failed to marshal order event", zap.Error(err))
		return
	}

	if p.producer != nil {
		if err := p.producer.Publish(ctx, []byte(evt.OrderID), data); err != nil {
			zap.L().Warn("Kafka publish failed",
				zap.String("type", eventType),
				zap.String("order_id", evt.OrderID),
				zap.Error(err),
			)
		}
	}

	if p.sns != nil && p.snsTopicARN != "" {
		if err := p.sns.Publish(ctx, p.snsTopicARN, data); err != nil {
			zap.L().Warn("SNS publish failed",
				zap.String("type", eventType),
				zap.String("order_id", evt.OrderID),
				zap.Error(err),
			)
		}
	}
}
