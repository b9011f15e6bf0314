package messaging

import (
	"context"

	"github.com/gavelworks/auctionhouse/internal/bidding/domain"
	"github.com/gavelworks/auctionhouse/pkg/mq"
)

// kafkaPublisher 基于 Kafka 的事件发布者实现
type kafkaPublisher struct {
	producer *mq.Producer
}

// NewKafkaPublisher 创建事件发布者
func NewKafkaPublisher(producer *mq.Producer) domain.EventPublisher {
	return &kafkaPublisher{producer: producer}
}

func (p *kafkaPublisher) Publish(ctx context.Context, topic string, key string, event any) error {
	return p.producer.SendMessage(ctx, topic, key, event)
}
