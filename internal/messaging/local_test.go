package messaging

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTimeout = 2 * time.Second

var (
	_ IPublisher  = (*MemoryPublisher)(nil)
	_ ISubscriber = (*MemorySubscriber)(nil)
	_ IPublisher  = (*JetStreamPublisher)(nil)
	_ ISubscriber = (*JetStreamSubscriber)(nil)
	_ IPublisher  = (*AWSPublisher)(nil)
	_ ISubscriber = (*AWSSubscriber)(nil)
	_ IPublisher  = (*GCPPublisher)(nil)
	_ ISubscriber = (*GCPSubscriber)(nil)
)

func receiveOne(t *testing.T, ch <-chan *message.Message) *message.Message {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(testTimeout):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func newMemoryPair(t *testing.T, topic string) (*MemoryPublisher, <-chan *message.Message) {
	t.Helper()
	ch := NewMemoryChannel()
	pub := NewMemoryPublisher(ch, topic)
	sub := NewMemorySubscriber(ch, topic)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	msgs, err := sub.Subscribe(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pub.Close() })
	return pub, msgs
}

func TestMemoryPublishAndSubscribe(t *testing.T) {
	t.Run("should deliver the published payload", func(t *testing.T) {
		pub, msgs := newMemoryPair(t, "notifications")

		id := watermill.NewUUID()
		require.NoError(t, pub.Publish(message.NewMessage(id, []byte("hello"))))

		msg := receiveOne(t, msgs)
		assert.Equal(t, id, msg.UUID)
		assert.Equal(t, "hello", string(msg.Payload))
		msg.Ack()
	})

	t.Run("should deliver every message once", func(t *testing.T) {
		pub, msgs := newMemoryPair(t, "notifications")

		const count = 5
		expected := make(map[string]bool, count)
		for range count {
			id := watermill.NewUUID()
			expected[id] = false
			require.NoError(t, pub.Publish(message.NewMessage(id, []byte("msg"))))
		}

		for range count {
			msg := receiveOne(t, msgs)
			_, known := expected[msg.UUID]
			assert.True(t, known, "unexpected message %s", msg.UUID)
			expected[msg.UUID] = true
			msg.Ack()
		}

		for id, received := range expected {
			assert.True(t, received, "message %s was never received", id)
		}
	})

	t.Run("should keep topics on separate channels apart", func(t *testing.T) {
		pubA, msgsA := newMemoryPair(t, "topic-a")
		_, msgsB := newMemoryPair(t, "topic-b")

		id := watermill.NewUUID()
		require.NoError(t, pubA.Publish(message.NewMessage(id, []byte("only-a"))))

		msg := receiveOne(t, msgsA)
		assert.Equal(t, id, msg.UUID)
		msg.Ack()

		select {
		case m := <-msgsB:
			t.Errorf("topic-b received %s", m.UUID)
		case <-time.After(200 * time.Millisecond):
		}
	})
}

func TestMemoryPublisherClose(t *testing.T) {
	t.Run("should refuse to publish after close", func(t *testing.T) {
		pub := NewMemoryPublisher(NewMemoryChannel(), "notifications")

		require.NoError(t, pub.Close())
		assert.Error(t, pub.Publish(message.NewMessage(watermill.NewUUID(), []byte("late"))))
	})
}
