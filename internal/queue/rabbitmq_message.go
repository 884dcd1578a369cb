package queue

import (
	amqp "github.com/rabbitmq/amqp091-go"
)

// Message pairs a decoded Job with the delivery it arrived on, so workers can
// ack or dead-letter on the same channel the broker delivered through.
type Message struct {
	Job         *Job
	DeliveryTag uint64
	Channel     *amqp.Channel
}

// Ack marks the delivery as processed.
func (m *Message) Ack() error {
	return m.Channel.Ack(m.DeliveryTag, false)
}

// Nack rejects the delivery. With requeue false the broker dead-letters it.
func (m *Message) Nack(requeue bool) error {
	return m.Channel.Nack(m.DeliveryTag, false, requeue)
}

// GetJob returns the wrapped job.
func (m *Message) GetJob() *Job {
	return m.Job
}
