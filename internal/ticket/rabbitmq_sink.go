package ticket

import (
	"context"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	xerrors "SettleX-Atlas/internal/errors"
)

// RabbitMQConfig 描述 RabbitMQ 工单队列的连接参数。
type RabbitMQConfig struct {
	URL        string
	Queue      string
	Durable    bool
	AutoDelete bool
}

type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// RabbitMQSink 把工单发布到 RabbitMQ 队列。
type RabbitMQSink struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	pub   publisher
	queue string
}

// NewRabbitMQSink 建立连接并声明队列。
func NewRabbitMQSink(cfg RabbitMQConfig) (*RabbitMQSink, error) {
	if cfg.URL == "" {
		return nil, errors.New("RabbitMQ URL 不能为空")
	}
	queue := cfg.Queue
	if queue == "" {
		queue = "atlas.tickets"
	}
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("连接 RabbitMQ 失败: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("创建 RabbitMQ channel 失败: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, cfg.Durable, cfg.AutoDelete, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("声明 RabbitMQ 队列失败: %w", err)
	}
	return &RabbitMQSink{conn: conn, ch: ch, pub: ch, queue: queue}, nil
}

// Submit 以持久化消息发布工单。
func (s *RabbitMQSink) Submit(ctx context.Context, t Ticket) error {
	if s == nil || s.pub == nil {
		return errors.New("RabbitMQ 投递目标未初始化")
	}
	payload, err := t.Encode()
	if err != nil {
		return xerrors.Wrap(CodeSubmitFailed, err, "序列化工单失败")
	}
	err = s.pub.PublishWithContext(ctx, "", s.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    t.ID,
		Timestamp:    t.CreatedAt,
		Body:         payload,
	})
	if err != nil {
		return xerrors.Wrap(CodeSubmitFailed, err, "RabbitMQ 投递工单失败",
			xerrors.WithMetadata("queue", s.queue))
	}
	return nil
}

// Close 关闭 RabbitMQ 连接。
func (s *RabbitMQSink) Close() error {
	if s == nil {
		return nil
	}
	if s.ch != nil {
		_ = s.ch.Close()
	}
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

var _ Sink = (*RabbitMQSink)(nil)
