package bridge

import (
	"github.com/robotalks/sigfox.go/pkg/mqtt"
)

// QueuePublisher publishes through an MQTT queue.
type QueuePublisher struct {
	Queue *mqtt.Queue
}

// Publish implements Publisher.
func (p *QueuePublisher) Publish(topic string, payload []byte, retain bool) error {
	token := p.Queue.PubWith(topic, payload, 1, retain)
	token.Wait()
	return token.Error()
}

// Attach subscribes the request topics of the bridge on the queue.
func (b *Bridge) Attach(q *mqtt.Queue) {
	q.Sub(b.Topic(TopicSend), mqtt.Handler(b.HandleMessage))
	q.Sub(b.Topic(TopicPower), mqtt.Handler(b.HandleMessage))
}
