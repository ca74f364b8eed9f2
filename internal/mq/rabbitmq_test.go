package mq

import (
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
)

func TestDeliveryAttributes(t *testing.T) {
	attrs := deliveryAttributes(amqp.Delivery{
		ContentType: "application/json",
		Type:        "user.subscribed",
		Headers: amqp.Table{
			AttrOrderingKey: "u1",
			"raw":           []byte("bytes"),
			"attempt":       int32(2),
		},
	})

	want := map[string]string{
		AttrContentType: "application/json",
		AttrEventType:   "user.subscribed",
		AttrOrderingKey: "u1",
		"raw":           "bytes",
		"attempt":       "2",
	}
	for key, value := range want {
		if attrs[key] != value {
			t.Fatalf("%s: expected %q, got %q", key, value, attrs[key])
		}
	}
}

func TestDeliveryMode(t *testing.T) {
	if deliveryMode(true) != amqp.Persistent || deliveryMode(false) != amqp.Transient {
		t.Fatalf("unexpected delivery modes")
	}
}
