package audit_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/mock/gomock"

	"agegate/internal/audit"
	"agegate/internal/audit/mocks"
	"agegate/pkg/domain"
	"agegate/pkg/requestcontext"
)

type failingSink struct {
	writes   int
	closeErr error
}

func (f *failingSink) Write(context.Context, audit.Event) error {
	f.writes++
	return errors.New("sink down")
}

func (f *failingSink) Close() error { return f.closeErr }

type AuditSuite struct {
	suite.Suite
	now time.Time
	ctx context.Context
}

func TestAuditSuite(t *testing.T) {
	suite.Run(t, new(AuditSuite))
}

func (s *AuditSuite) SetupTest() {
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithRequestID(requestcontext.WithTime(context.Background(), s.now), "req-1")
}

func (s *AuditSuite) TestRing() {
	s.Run("keeps the newest events when full", func() {
		ring := audit.NewRing(3)
		for _, id := range []string{"c1", "c2", "c3", "c4", "c5"} {
			s.Require().NoError(ring.Write(s.ctx, audit.Event{CartID: domain.CartID(id)}))
		}

		got := ring.Recent(0)
		s.Require().Len(got, 3)
		s.Equal(domain.CartID("c3"), got[0].CartID)
		s.Equal(domain.CartID("c5"), got[2].CartID)
		s.Equal(int64(2), ring.Dropped())
		s.Equal(3, ring.Len())
	})

	s.Run("recent limits to the newest n", func() {
		ring := audit.NewRing(10)
		for _, id := range []string{"c1", "c2", "c3"} {
			s.Require().NoError(ring.Write(s.ctx, audit.Event{CartID: domain.CartID(id)}))
		}

		got := ring.Recent(2)
		s.Require().Len(got, 2)
		s.Equal(domain.CartID("c2"), got[0].CartID)
		s.Equal(domain.CartID("c3"), got[1].CartID)
	})

	s.Run("stored events do not alias caller slices", func() {
		ring := audit.NewRing(2)
		skus := []string{"KNIFE-1"}
		s.Require().NoError(ring.Write(s.ctx, audit.Event{SKUs: skus}))
		skus[0] = "CHANGED"

		s.Equal([]string{"KNIFE-1"}, ring.Recent(1)[0].SKUs)
	})

	s.Run("empty ring", func() {
		s.Empty(audit.NewRing(0).Recent(5))
	})
}

func (s *AuditSuite) TestPublisherStampsEvents() {
	ring := audit.NewRing(5)
	pub := audit.NewPublisher(audit.WithSink(ring))

	pub.Emit(s.ctx, audit.Event{Action: audit.ActionFlowStarted, CartID: "cart1"})

	got := ring.Recent(1)
	s.Require().Len(got, 1)
	s.Equal(s.now, got[0].Timestamp)
	s.Equal("req-1", got[0].RequestID)
	s.Equal(audit.ActionFlowStarted, got[0].Action)
}

func (s *AuditSuite) TestPublisherKeepsExplicitFields() {
	ring := audit.NewRing(5)
	pub := audit.NewPublisher(audit.WithSink(ring))
	at := s.now.Add(-time.Minute)

	pub.Emit(s.ctx, audit.Event{Action: audit.ActionVerificationCleared, Timestamp: at, RequestID: "other"})

	got := ring.Recent(1)[0]
	s.Equal(at, got.Timestamp)
	s.Equal("other", got.RequestID)
}

func (s *AuditSuite) TestFailingSinkDoesNotBlockOthers() {
	broken := &failingSink{}
	ring := audit.NewRing(5)
	pub := audit.NewPublisher(audit.WithSink(broken), audit.WithSink(ring))

	pub.Emit(s.ctx, audit.Event{Action: audit.ActionVerificationFailed, CartID: "cart1"})

	s.Equal(1, broken.writes)
	s.Equal(1, ring.Len())
}

func (s *AuditSuite) TestNilPublisher() {
	var pub *audit.Publisher
	s.NotPanics(func() {
		pub.Emit(s.ctx, audit.Event{Action: audit.ActionFlowStarted})
	})
	s.NoError(pub.Close())
}

func (s *AuditSuite) TestCloseJoinsSinkErrors() {
	closeErr := errors.New("close failed")
	pub := audit.NewPublisher(audit.WithSink(&failingSink{closeErr: closeErr}), audit.WithSink(audit.NewRing(1)))

	s.ErrorIs(pub.Close(), closeErr)
}

func TestKafkaSinkWrite(t *testing.T) {
	ctrl := gomock.NewController(t)
	producer := mocks.NewMockProducer(ctrl)
	sink := audit.NewKafkaSinkWithProducer(producer, "agegate.audit")

	var produced *kgo.Record
	producer.EXPECT().
		Produce(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, r *kgo.Record, promise func(*kgo.Record, error)) {
			produced = r
			promise(r, errors.New("broker unavailable"))
		})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	event := audit.Event{
		Action:    audit.ActionCartItemsRemoved,
		CartID:    "cart42",
		SKUs:      []string{"KNIFE-1"},
		Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, sink.Write(ctx, event))

	require.NotNil(t, produced)
	assert.Equal(t, "agegate.audit", produced.Topic)
	assert.Equal(t, []byte("cart42"), produced.Key)
	require.Len(t, produced.Headers, 1)
	assert.Equal(t, "action", produced.Headers[0].Key)
	assert.Equal(t, []byte("cart_items_removed"), produced.Headers[0].Value)

	var decoded audit.Event
	require.NoError(t, json.Unmarshal(produced.Value, &decoded))
	assert.Equal(t, event, decoded)
}

func TestKafkaSinkClose(t *testing.T) {
	t.Run("flushes then closes", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		producer := mocks.NewMockProducer(ctrl)
		gomock.InOrder(
			producer.EXPECT().Flush(gomock.Any()).Return(nil),
			producer.EXPECT().Close(),
		)

		require.NoError(t, audit.NewKafkaSinkWithProducer(producer, "t").Close())
	})

	t.Run("flush error still closes", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		producer := mocks.NewMockProducer(ctrl)
		flushErr := context.DeadlineExceeded
		producer.EXPECT().Flush(gomock.Any()).Return(flushErr)
		producer.EXPECT().Close()

		err := audit.NewKafkaSinkWithProducer(producer, "t").Close()
		assert.ErrorIs(t, err, flushErr)
	})
}

func TestNewKafkaSinkValidation(t *testing.T) {
	_, err := audit.NewKafkaSink(nil, "topic")
	assert.Error(t, err)

	_, err = audit.NewKafkaSink([]string{"localhost:9092"}, "")
	assert.Error(t, err)
}
