// Package events 发布计划生成事件
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/laborplan/laborplan/internal/config"
	"github.com/laborplan/laborplan/pkg/logger"
)

// EventPlanGenerated 事件类型
const EventPlanGenerated = "plan.generated"

// PlanEvent 计划生成完成事件
type PlanEvent struct {
	Type                  string    `json:"type"`
	Period                string    `json:"period"`
	Mode                  string    `json:"mode"`
	Assignments           int       `json:"assignments"`
	UnassignedQuantity    int       `json:"unassigned_quantity"`
	RequiredOvertimeHours float64   `json:"required_overtime_hours"`
	CapacityGap           float64   `json:"capacity_gap"`
	WorkersSaved          int       `json:"workers_saved"`
	DurationMs            int64     `json:"duration_ms"`
	GeneratedAt           time.Time `json:"generated_at"`
}

// Publisher 事件发布接口
type Publisher interface {
	PublishPlan(ctx context.Context, event *PlanEvent) error
	Close() error
}

// messageWriter kafka.Writer 的最小接口
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher 基于 kafka-go 的发布者
type KafkaPublisher struct {
	writer messageWriter
	topic  string
}

// NewKafkaPublisher 根据配置创建发布者
func NewKafkaPublisher(cfg *config.KafkaConfig) *KafkaPublisher {
	return newKafkaPublisher(&kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		RequiredAcks: kafka.RequireOne,
		Balancer:     &kafka.Hash{},
	}, cfg.Topic)
}

func newKafkaPublisher(w messageWriter, topic string) *KafkaPublisher {
	return &KafkaPublisher{writer: w, topic: topic}
}

// PublishPlan 发布计划事件，以期间为消息键保证同一期间有序
func (p *KafkaPublisher) PublishPlan(ctx context.Context, event *PlanEvent) error {
	if event.Type == "" {
		event.Type = EventPlanGenerated
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("序列化计划事件失败: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.Period),
		Value: payload,
		Time:  event.GeneratedAt,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(event.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("发布计划事件到 %s 失败: %w", p.topic, err)
	}

	logger.Debug().
		Str("topic", p.topic).
		Str("period", event.Period).
		Msg("计划事件已发布")
	return nil
}

// Close 关闭写入器
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher 未启用 Kafka 时使用
type NopPublisher struct{}

// PublishPlan 不做任何事
func (NopPublisher) PublishPlan(context.Context, *PlanEvent) error { return nil }

// Close 不做任何事
func (NopPublisher) Close() error { return nil }

// New 按配置返回发布者
func New(cfg *config.KafkaConfig) Publisher {
	if cfg == nil || !cfg.Enabled {
		return NopPublisher{}
	}
	return NewKafkaPublisher(cfg)
}
