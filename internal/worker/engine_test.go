package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Additional-Code/suratjalan/internal/config"
	"github.com/Additional-Code/suratjalan/internal/messaging"
)

func message(topic string, t messaging.EventType) messaging.Message {
	msg := messaging.Message{Topic: topic}
	if t != "" {
		msg.Headers = map[string]string{messaging.HeaderEventType: string(t)}
	}
	return msg
}

func recorder(calls *[]string, name string, err error) messaging.Handler {
	return func(context.Context, messaging.Message) error {
		*calls = append(*calls, name)
		return err
	}
}

func TestDispatchPrefersEventTypeRoute(t *testing.T) {
	var calls []string
	engine := NewEngine(Params{
		Logger: zap.NewNop(),
		Registrations: []HandlerRegistration{
			{Topic: "events", Handler: recorder(&calls, "catch-all", nil)},
			{Topic: "events", EventType: messaging.EventDeliveryNoteCreated, Handler: recorder(&calls, "created", nil)},
			{Topic: "", Handler: recorder(&calls, "ignored", nil)},
		},
	})

	require.NoError(t, engine.Dispatch(context.Background(), message("events", messaging.EventDeliveryNoteCreated)))
	require.NoError(t, engine.Dispatch(context.Background(), message("events", messaging.EventPurchaseOrderDeleted)))
	require.NoError(t, engine.Dispatch(context.Background(), message("events", "")))
	assert.Equal(t, []string{"created", "catch-all", "catch-all"}, calls)
}

func TestDispatchUnroutedIsAcknowledged(t *testing.T) {
	var calls []string
	engine := NewEngine(Params{
		Logger: zap.NewNop(),
		Registrations: []HandlerRegistration{
			{Topic: "events", EventType: messaging.EventDeliveryNoteCreated, Handler: recorder(&calls, "created", nil)},
		},
	})

	assert.NoError(t, engine.Dispatch(context.Background(), message("other", messaging.EventDeliveryNoteCreated)))
	assert.NoError(t, engine.Dispatch(context.Background(), message("events", messaging.EventDeliveryNoteDeleted)))
	assert.Empty(t, calls)
}

func TestDispatchJoinsHandlerErrors(t *testing.T) {
	var calls []string
	boom := errors.New("boom")
	engine := NewEngine(Params{
		Logger: zap.NewNop(),
		Registrations: []HandlerRegistration{
			{Topic: "events", Handler: recorder(&calls, "first", boom)},
			{Topic: "events", Handler: recorder(&calls, "second", nil)},
		},
	})

	err := engine.Dispatch(context.Background(), message("events", messaging.EventPurchaseOrderUpdated))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestStartDisabledIsNoop(t *testing.T) {
	engine := NewEngine(Params{
		Logger: zap.NewNop(),
		Config: config.Config{},
		Registrations: []HandlerRegistration{
			{Topic: "events", Handler: func(context.Context, messaging.Message) error { return nil }},
		},
	})

	require.NoError(t, engine.start(context.Background()))
	assert.Nil(t, engine.cancel)
	assert.NoError(t, engine.stop(context.Background()))
}

func TestStartConsumesUntilStopped(t *testing.T) {
	cfg := config.Config{}
	cfg.Messaging.Enabled = true
	cfg.Messaging.Workers.Enabled = true
	cfg.Messaging.Workers.Concurrency = 2

	engine := NewEngine(Params{
		Client: messaging.NewRecorder("events"),
		Logger: zap.NewNop(),
		Config: cfg,
		Registrations: []HandlerRegistration{
			{Topic: "events", Handler: func(context.Context, messaging.Message) error { return nil }},
		},
	})

	require.NoError(t, engine.start(context.Background()))
	require.NotNil(t, engine.cancel)
	assert.NoError(t, engine.stop(context.Background()))
}
