// Package notify delivers completed pleas to the court's processing queue.
// The engine only sees the Submitter interface; the AMQP implementation
// publishes a persistent JSON message with publisher confirms and
// exponential-backoff retry, so the user-facing request never blocks on
// downstream email delivery.
package notify
