package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/laborplan/laborplan/internal/config"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaPublisherPublishPlan(t *testing.T) {
	w := &fakeWriter{}
	p := newKafkaPublisher(w, "laborplan.plan-generated")

	at := time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC)
	err := p.PublishPlan(context.Background(), &PlanEvent{
		Period:             "2025-09",
		Mode:               "multi_shift",
		Assignments:        12,
		UnassignedQuantity: 30,
		GeneratedAt:        at,
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "2025-09", string(msg.Key))
	assert.Equal(t, at, msg.Time)

	var got PlanEvent
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, EventPlanGenerated, got.Type)
	assert.Equal(t, 12, got.Assignments)
	assert.Equal(t, 30, got.UnassignedQuantity)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestKafkaPublisherWriteError(t *testing.T) {
	p := newKafkaPublisher(&fakeWriter{err: errors.New("broker down")}, "topic")
	err := p.PublishPlan(context.Background(), &PlanEvent{Period: "2025-09"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}

func TestNewSelectsPublisher(t *testing.T) {
	assert.IsType(t, NopPublisher{}, New(nil))
	assert.IsType(t, NopPublisher{}, New(&config.KafkaConfig{Enabled: false}))

	p := New(&config.KafkaConfig{Enabled: true, Brokers: []string{"localhost:9092"}, Topic: "t"})
	assert.IsType(t, &KafkaPublisher{}, p)
	assert.NoError(t, NopPublisher{}.PublishPlan(context.Background(), &PlanEvent{}))
}
