package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

// MockKafkaWriter implements KafkaWriter for testing
type MockKafkaWriter struct {
	mock.Mock
}

func (m *MockKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *MockKafkaWriter) Close() error {
	args := m.Called()
	return args.Error(0)
}

var fixedNow = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func newTestProducer(writer KafkaWriter, logger *zap.Logger, queue int) *Producer {
	return &Producer{
		writer:       writer,
		events:       make(chan Event, queue),
		logger:       logger,
		closeChan:    make(chan struct{}),
		writeTimeout: time.Second,
		now:          func() time.Time { return fixedNow },
	}
}

func TestProducer_Publish(t *testing.T) {
	t.Run("successful publish", func(t *testing.T) {
		producer := newTestProducer(new(MockKafkaWriter), zaptest.NewLogger(t), 10)

		producer.Publish(GlobalChannel, MarketEventStart, Payload{"name": "Tech Boom"})

		require.Equal(t, 1, len(producer.events))
		event := <-producer.events
		assert.Equal(t, MarketEventStart, event.Name)
		assert.Equal(t, fixedNow, event.At)
	})

	t.Run("dropped event when queue full", func(t *testing.T) {
		core, recorded := observer.New(zap.WarnLevel)
		producer := newTestProducer(new(MockKafkaWriter), zap.New(core), 1)

		producer.Publish(GlobalChannel, MarketEventStart, nil)
		producer.Publish(GlobalChannel, MarketEventStart, nil) // This should be dropped

		assert.Equal(t, 1, recorded.FilterMessage("Kafka producer queue full, dropping event").Len())
	})
}

func TestProducer_SendEvent(t *testing.T) {
	mockWriter := new(MockKafkaWriter)
	producer := newTestProducer(mockWriter, zaptest.NewLogger(t), 1)
	playerID := uuid.New()
	event := Event{Channel: PlayerChannel(playerID), Name: PayrollFailed, Payload: Payload{"due": "150.00"}, At: fixedNow}

	t.Run("successful send", func(t *testing.T) {
		mockWriter.On("WriteMessages", mock.Anything, mock.Anything).Return(nil)

		producer.sendEvent(context.Background(), event)

		value, err := json.Marshal(event)
		require.NoError(t, err)
		mockWriter.AssertCalled(t, "WriteMessages", mock.Anything, []kafka.Message{
			{Key: []byte(PlayerChannel(playerID)), Value: value},
		})
	})

	t.Run("serialization error", func(t *testing.T) {
		core, recorded := observer.New(zap.ErrorLevel)
		producer.logger = zap.New(core)

		oldMarshal := jsonMarshal
		jsonMarshal = func(_ interface{}) ([]byte, error) {
			return nil, errors.New("mock marshal error")
		}
		defer func() { jsonMarshal = oldMarshal }()

		producer.sendEvent(context.Background(), event)

		assert.Equal(t, 1, recorded.FilterMessage("Failed to serialize event").Len())
	})

	t.Run("write error", func(t *testing.T) {
		core, recorded := observer.New(zap.ErrorLevel)
		producer.logger = zap.New(core)
		mockWriter.ExpectedCalls = nil
		mockWriter.On("WriteMessages", mock.Anything, mock.Anything).Return(errors.New("kafka error"))

		producer.sendEvent(context.Background(), event)

		assert.Equal(t, 1, recorded.FilterMessage("Failed to produce event").Len())
		assert.Equal(t, 1, recorded.FilterField(zap.String("channel", PlayerChannel(playerID))).Len())
	})
}

func TestProducer_EventLoopAndClose(t *testing.T) {
	mockWriter := new(MockKafkaWriter)
	delivered := make(chan struct{})
	mockWriter.On("WriteMessages", mock.Anything, mock.Anything).Return(nil).Run(func(mock.Arguments) {
		close(delivered)
	}).Once()
	mockWriter.On("Close").Return(nil)

	producer := newTestProducer(mockWriter, zaptest.NewLogger(t), 1)
	go producer.eventLoop()

	producer.Publish(GlobalChannel, BugFixed, nil)

	select {
	case <-delivered:
	case <-time.After(time.Second):
		t.Fatal("event was not delivered")
	}

	producer.Close()
	select {
	case <-producer.closeChan:
	default:
		t.Error("closeChan not closed")
	}
	mockWriter.AssertCalled(t, "Close")
}

type fakeWebhook struct {
	mu     sync.Mutex
	params []*discordgo.WebhookParams
	err    error
	done   chan struct{}
}

func (f *fakeWebhook) WebhookExecute(_, _ string, _ bool, data *discordgo.WebhookParams, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	f.params = append(f.params, data)
	f.mu.Unlock()
	f.done <- struct{}{}
	return nil, f.err
}

func TestDiscordNotifierFiltersAndPosts(t *testing.T) {
	hook := &fakeWebhook{done: make(chan struct{}, 4)}
	d := newDiscordNotifier(hook, DiscordConfig{Events: []string{string(CompanyBankrupt)}}, zaptest.NewLogger(t))
	defer d.Close()

	d.Publish(GlobalChannel, BugSpawned, Payload{"title": "ignored"})
	d.Publish(GlobalChannel, CompanyBankrupt, Payload{"company": "Acme", "cash": "-10500.00"})

	select {
	case <-hook.done:
	case <-time.After(time.Second):
		t.Fatal("webhook not called")
	}

	hook.mu.Lock()
	defer hook.mu.Unlock()
	require.Len(t, hook.params, 1)
	assert.Equal(t, "Dev Tycoon", hook.params[0].Username)
	assert.Equal(t, "**company.bankrupt**: cash=-10500.00, company=Acme", hook.params[0].Content)
}

func TestDiscordNotifierLogsFailures(t *testing.T) {
	core, recorded := observer.New(zap.ErrorLevel)
	hook := &fakeWebhook{done: make(chan struct{}, 1), err: errors.New("rate limited")}
	d := newDiscordNotifier(hook, DiscordConfig{}, zap.New(core))

	d.send(Event{Name: QuestExpired})
	d.Close()

	assert.Equal(t, 1, recorded.FilterMessage("Failed to post discord webhook").Len())
}

func TestFormatMessage(t *testing.T) {
	playerID := uuid.New()
	msg := FormatMessage(Event{Channel: PlayerChannel(playerID), Name: ProjectCompleted})
	assert.Equal(t, "**project.completed** (player."+playerID.String()+")", msg)
}

type recorder struct {
	names []Name
}

func (r *recorder) Publish(_ string, name Name, _ Payload) {
	r.names = append(r.names, name)
}

func TestFanout(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	f := Fanout{a, Nop{}, b}

	f.Publish(GlobalChannel, MarketEventStart, nil)

	assert.Equal(t, []Name{MarketEventStart}, a.names)
	assert.Equal(t, []Name{MarketEventStart}, b.names)
}

type fakeReader struct {
	msgs      []kafka.Message
	committed []kafka.Message
	cancel    context.CancelFunc
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(f.msgs) == 0 {
		f.cancel()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	msg := f.msgs[0]
	f.msgs = f.msgs[1:]
	return msg, nil
}

func (f *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	f.committed = append(f.committed, msgs...)
	return nil
}

func (f *fakeReader) Close() error { return nil }

func TestConsumerRunCommitsHandledMessages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	good, err := json.Marshal(Event{Channel: GlobalChannel, Name: MarketEventStart})
	require.NoError(t, err)

	reader := &fakeReader{
		msgs:   []kafka.Message{{Value: []byte("not json")}, {Value: good}},
		cancel: cancel,
	}
	c := &Consumer{reader: reader, logger: zaptest.NewLogger(t)}

	var handled []Name
	c.RegisterHandler(func(_ context.Context, e Event) error {
		handled = append(handled, e.Name)
		return nil
	})
	c.Run(ctx)

	assert.Equal(t, []Name{MarketEventStart}, handled)
	assert.Len(t, reader.committed, 1)
}
