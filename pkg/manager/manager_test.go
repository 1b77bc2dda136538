package manager

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	wmgochannel "github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/dukex/sagaflow/pkg/channels/gochannel"
	"github.com/dukex/sagaflow/pkg/events"
	"github.com/dukex/sagaflow/pkg/metrics"
	"github.com/dukex/sagaflow/pkg/mocks"
	"github.com/dukex/sagaflow/pkg/models"
	"github.com/dukex/sagaflow/pkg/otelhelper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

const waitFor = 5 * time.Second

type harness struct {
	bus      *wmgochannel.GoChannel
	manager  *Manager
	triggers <-chan *message.Message
	cancel   context.CancelFunc
}

func startHarness(t *testing.T, rollbacks *models.RollbackTable) *harness {
	t.Helper()

	bus := gochannel.CreateChannel(watermill.NopLogger{})
	ctx, cancel := context.WithCancel(context.Background())

	triggers, err := bus.Subscribe(ctx, events.TriggersTopic)
	require.NoError(t, err)

	m := New("test-manager", testLogger(), Channels{Status: bus, Edits: bus, Publisher: bus}, rollbacks)
	require.NoError(t, m.Start(ctx))

	t.Cleanup(func() {
		cancel()
		m.Wait()
		_ = bus.Close()
	})

	return &harness{bus: bus, manager: m, triggers: triggers, cancel: cancel}
}

func publishJSON(t *testing.T, pub message.Publisher, topic string, v any) {
	t.Helper()

	payload, err := json.Marshal(v)
	require.NoError(t, err)

	require.NoError(t, pub.Publish(topic, message.NewMessage(watermill.NewUUID(), payload)))
}

func publishEdit(t *testing.T, h *harness, name, version string, w models.Workflow) {
	t.Helper()

	publishJSON(t, h.bus, events.EditsTopic, events.ToManagerEdits{
		Name: name, Version: version, Schema: "v0.1.0", Workflow: w,
	})

	require.Eventually(t, func() bool {
		_, ok := h.manager.Registry().Get(name, version)

		return ok
	}, waitFor, 10*time.Millisecond)
}

func receiveTrigger(t *testing.T, h *harness) *events.FromManager {
	t.Helper()

	select {
	case msg := <-h.triggers:
		msg.Ack()

		var out events.FromManager
		require.NoError(t, json.Unmarshal(msg.Payload, &out))

		assert.Equal(t, string(events.TriggerEvent), msg.Metadata.Get(events.EventTypeMetadataKey))
		assert.Equal(t, out.UUID, msg.Metadata.Get(events.InstanceMetadataKey))

		return &out
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for trigger")

		return nil
	}
}

func assertNoTrigger(t *testing.T, h *harness) {
	t.Helper()

	select {
	case msg := <-h.triggers:
		t.Fatalf("unexpected trigger: %s", msg.Payload)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestManager_ForwardFlow(t *testing.T) {
	h := startHarness(t, nil)
	publishEdit(t, h, "checkout", "v1", models.Workflow{procP: {procQ, procR}})

	publishJSON(t, h.bus, events.StatusTopic, report(events.StatusSuccess, procP, ""))

	first := receiveTrigger(t, h)
	second := receiveTrigger(t, h)

	assert.Equal(t, []models.Process{procQ, procR}, []models.Process{first.Process, second.Process})
	assert.Equal(t, "v1", first.Version)
	assert.JSONEq(t, `{"order":42}`, string(first.Data))
}

func TestManager_CompensationFlow(t *testing.T) {
	rollbacks := models.NewRollbackTable()
	rollbacks.Add(procA, undoA)
	rollbacks.Add(procB, undoB)

	h := startHarness(t, rollbacks)
	publishEdit(t, h, "checkout", "v1", models.Workflow{procA: {procB}, procB: {procC}})

	publishJSON(t, h.bus, events.StatusTopic, report(events.StatusFailed, procC, "v1"))

	assert.Equal(t, undoB, receiveTrigger(t, h).Process)
	assert.Equal(t, undoA, receiveTrigger(t, h).Process)
}

func TestManager_SurvivesBadMessages(t *testing.T) {
	h := startHarness(t, nil)

	require.NoError(t, h.bus.Publish(events.EditsTopic, message.NewMessage(watermill.NewUUID(), []byte("{not json"))))
	require.NoError(t, h.bus.Publish(events.StatusTopic, message.NewMessage(watermill.NewUUID(), []byte("\x00\x01"))))
	publishJSON(t, h.bus, events.StatusTopic, map[string]string{"uuid": "x"})

	unknown := report(events.StatusSuccess, procA, "")
	unknown.Name = "refund"
	publishJSON(t, h.bus, events.StatusTopic, unknown)

	publishEdit(t, h, "checkout", "v1", models.Workflow{procA: {procB}})
	publishJSON(t, h.bus, events.StatusTopic, report(events.StatusSuccess, procD, "v1"))
	publishJSON(t, h.bus, events.StatusTopic, report(events.StatusInProgress, procA, "v1"))
	assertNoTrigger(t, h)

	publishJSON(t, h.bus, events.StatusTopic, report(events.StatusSuccess, procA, "v1"))
	assert.Equal(t, procB, receiveTrigger(t, h).Process)
}

func TestManager_DuplicateEditKeepsFirst(t *testing.T) {
	h := startHarness(t, nil)
	publishEdit(t, h, "checkout", "v1", models.Workflow{procA: {procB}})

	publishJSON(t, h.bus, events.EditsTopic, events.ToManagerEdits{
		Name: "checkout", Version: "v1", Workflow: models.Workflow{procA: {procC}},
	})
	publishEdit(t, h, "checkout", "v2", models.Workflow{procA: {procD}})

	publishJSON(t, h.bus, events.StatusTopic, report(events.StatusSuccess, procA, "v1"))
	assert.Equal(t, procB, receiveTrigger(t, h).Process)
}

type failingPublisher struct {
	mu       sync.Mutex
	failures int
	inner    message.Publisher
}

func (p *failingPublisher) Publish(topic string, messages ...*message.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.failures > 0 {
		p.failures--

		return errors.New("broker unavailable")
	}

	return p.inner.Publish(topic, messages...)
}

func (p *failingPublisher) Close() error {
	return nil
}

func TestManager_PublishFailureRedelivers(t *testing.T) {
	bus := gochannel.CreateChannel(watermill.NopLogger{})
	ctx, cancel := context.WithCancel(context.Background())

	triggers, err := bus.Subscribe(ctx, events.TriggersTopic)
	require.NoError(t, err)

	pub := &failingPublisher{failures: 1, inner: bus}
	m := New("test-manager", testLogger(), Channels{Status: bus, Edits: bus, Publisher: pub}, nil)
	require.NoError(t, m.Start(ctx))

	t.Cleanup(func() {
		cancel()
		m.Wait()
		_ = bus.Close()
	})

	h := &harness{bus: bus, manager: m, triggers: triggers, cancel: cancel}
	publishEdit(t, h, "checkout", "v1", models.Workflow{procA: {procB}})

	publishJSON(t, bus, events.StatusTopic, report(events.StatusSuccess, procA, "v1"))

	// The first publish fails, the report is nacked and redelivered.
	assert.Equal(t, procB, receiveTrigger(t, h).Process)
}

func TestManager_StopsOnCancel(t *testing.T) {
	bus := gochannel.CreateChannel(watermill.NopLogger{})
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())

	m := New("test-manager", testLogger(), Channels{Status: bus, Edits: bus, Publisher: bus}, nil)
	require.NoError(t, m.Start(ctx))

	cancel()

	done := make(chan struct{})
	go func() {
		m.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(waitFor):
		t.Fatal("manager did not stop")
	}
}

func TestProcessMessage_RecoversPanics(t *testing.T) {
	msg := message.NewMessage(watermill.NewUUID(), []byte("{}"))

	processMessage(context.Background(), testLogger(), otel.Tracer("test"), "status", msg, func(context.Context, *message.Message) (string, error) {
		panic("boom")
	})

	select {
	case <-msg.Acked():
	default:
		t.Fatal("panicking message must be acknowledged")
	}
}

func TestManager_StartSubscribeError(t *testing.T) {
	errBroker := errors.New("broker unavailable")

	tests := []struct {
		name        string
		editsErr    error
		statusErr   error
		failedTopic string
	}{
		{name: "edits", editsErr: errBroker, failedTopic: events.EditsTopic},
		{name: "status", statusErr: errBroker, failedTopic: events.StatusTopic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			var open <-chan *message.Message = make(chan *message.Message)

			edits := &mocks.MockSubscriber{}
			status := &mocks.MockSubscriber{}

			if tt.editsErr != nil {
				edits.On("Subscribe", mock.Anything, events.EditsTopic).Return(nil, tt.editsErr)
			} else {
				edits.On("Subscribe", mock.Anything, events.EditsTopic).Return(open, nil)
				status.On("Subscribe", mock.Anything, events.StatusTopic).Return(nil, tt.statusErr)
			}

			m := New("test-manager", testLogger(), Channels{
				Status:    status,
				Edits:     edits,
				Publisher: &mocks.MockPublisher{},
			}, nil)

			err := m.Start(ctx)
			require.Error(t, err)
			require.ErrorIs(t, err, errBroker)
			assert.Contains(t, err.Error(), tt.failedTopic)

			done := make(chan struct{})
			go func() {
				m.Wait()
				close(done)
			}()

			select {
			case <-done:
			case <-time.After(waitFor):
				t.Fatal("a consume loop was started after a failed subscribe")
			}

			edits.AssertExpectations(t)
			status.AssertExpectations(t)

			if tt.editsErr != nil {
				status.AssertNotCalled(t, "Subscribe", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestManager_HandleStatusSpanAttributes(t *testing.T) {
	bus := gochannel.CreateChannel(watermill.NopLogger{})
	t.Cleanup(func() { _ = bus.Close() })

	m := New("manager-7", testLogger(), Channels{Status: bus, Edits: bus, Publisher: bus}, nil)
	m.Registry().Register("checkout", models.NewWorkflowTriple(models.Workflow{procA: {procB}}, "v1"))
	m.Registry().Register("checkout", models.NewWorkflowTriple(models.Workflow{procA: {procC}}, "v2"))

	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	ctx, span := provider.Tracer("test").Start(context.Background(), "status")

	payload, err := json.Marshal(report(events.StatusSuccess, procA, ""))
	require.NoError(t, err)

	outcome, err := m.handleStatus(ctx, message.NewMessage(watermill.NewUUID(), payload))
	require.NoError(t, err)
	assert.Equal(t, metrics.OutcomeHandled, outcome)

	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)

	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range ended[0].Attributes() {
		attrs[kv.Key] = kv.Value
	}

	assert.Equal(t, "manager-7", attrs[otelhelper.ManagerIDKey].AsString())
	assert.Equal(t, "checkout", attrs[otelhelper.WorkflowNameKey].AsString())
	assert.Equal(t, "v2", attrs[otelhelper.WorkflowVersionKey].AsString(), "latest version is resolved")
	assert.Equal(t, int64(1), attrs[otelhelper.TriggerCountKey].AsInt64())
}
