package syncbus

import (
	"context"
	"os"
	"testing"
	"time"

	sarama "github.com/IBM/sarama"
	"github.com/google/uuid"
)

func newKafkaBus(t *testing.T) (*KafkaBus, context.Context) {
	t.Helper()
	addr := os.Getenv("SYNCRAFT_TEST_KAFKA_ADDR")
	if addr == "" {
		t.Skip("SYNCRAFT_TEST_KAFKA_ADDR not set, skipping Kafka integration tests")
	}

	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Consumer.Offsets.Initial = sarama.OffsetNewest

	bus, err := NewKafkaBus([]string{addr}, cfg)
	if err != nil {
		t.Fatalf("NewKafkaBus: %v", err)
	}
	t.Cleanup(bus.Close)
	return bus, context.Background()
}

func TestKafkaBusPublishSubscribe(t *testing.T) {
	bus, ctx := newKafkaBus(t)
	key := "flush:" + uuid.NewString()

	ch, err := bus.Subscribe(ctx, key)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	// consumer needs a moment to be positioned at the newest offset
	time.Sleep(500 * time.Millisecond)
	if err := bus.Publish(ctx, key); err != nil {
		t.Fatalf("publish: %v", err)
	}
	select {
	case <-ch:
	case <-time.After(10 * time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestKafkaTopicRewritesIllegalCharacters(t *testing.T) {
	if got := kafkaTopic("flush:usage stats"); got != "syncraft.flush.usage.stats" {
		t.Fatalf("unexpected topic %q", got)
	}
}
