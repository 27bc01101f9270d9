package kafka

import (
	"context"
	"errors"
	"testing"

	"sooicy-orders/internal/logger"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func TestProducerPublish(t *testing.T) {
	w := &recordingWriter{}
	p := &Producer{Writer: w}

	require.NoError(t, p.Publish(context.Background(), "sooicy.order.created", "12", []byte(`{"order_id":12}`)))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "sooicy.order.created", w.msgs[0].Topic)
	assert.Equal(t, "12", string(w.msgs[0].Key))
}

func TestProducerPublishWrapsError(t *testing.T) {
	cause := errors.New("broker down")
	p := &Producer{Writer: &recordingWriter{err: cause}}

	err := p.Publish(context.Background(), "t", "k", nil)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "publish to t")
}

type scriptedReader struct {
	msgs   []kafka.Message
	cancel context.CancelFunc
}

func (r *scriptedReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.msgs) == 0 {
		r.cancel()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	m := r.msgs[0]
	r.msgs = r.msgs[1:]
	return m, nil
}

func (r *scriptedReader) Close() error { return nil }

func TestConsumerHandlesUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := &scriptedReader{
		msgs:   []kafka.Message{{Topic: "a", Value: []byte("1")}, {Topic: "a", Value: []byte("bad")}, {Topic: "b", Value: []byte("2")}},
		cancel: cancel,
	}
	c := &Consumer{Reader: reader, Logger: logger.NewNopLogger()}

	var handled []string
	err := c.Start(ctx, func(m kafka.Message) error {
		if string(m.Value) == "bad" {
			return errors.New("cannot decode")
		}
		handled = append(handled, string(m.Value))
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, handled)
}
