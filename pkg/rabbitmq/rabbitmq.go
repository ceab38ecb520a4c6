package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	amqp "github.com/streadway/amqp"
)

// Client holds the RabbitMQ connection and the publishing channel.
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string

	// guards channel and is held until the confirm of the current publish is consumed, so acks pair with messages
	mu       sync.Mutex
	confirms chan amqp.Confirmation

	workers sync.WaitGroup
}

// Config holds RabbitMQ connection details.
type Config struct {
	URL   string
	Queue string
}

// NewClient connects to RabbitMQ, declares the durable work queue and puts the channel in confirm mode.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Queue == "" {
		return nil, errors.New("queue name is required")
	}
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := declareQueue(ch, cfg.Queue); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	if err := ch.Confirm(false); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to enable publisher confirms: %w", err)
	}

	log.Printf("RabbitMQ client connected and %s declared.", cfg.Queue)

	return &Client{
		conn:     conn,
		channel:  ch,
		queue:    cfg.Queue,
		confirms: ch.NotifyPublish(make(chan amqp.Confirmation, 1)),
	}, nil
}

func declareQueue(ch *amqp.Channel, name string) error {
	_, err := ch.QueueDeclare(
		name,  // name
		true,  // durable (persists messages across broker restarts)
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare %s: %w", name, err)
	}
	return nil
}

// Wait blocks until every consumer started by Consume has returned.
func (c *Client) Wait() {
	c.workers.Wait()
}

// Close closes the RabbitMQ connection and channel.
func (c *Client) Close() error {
	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Publish sends a persistent JSON message to the work queue and waits for the broker
// to confirm it was stored, or for ctx to end.
func (c *Client) Publish(ctx context.Context, body []byte) error {
	if c.channel == nil {
		return errors.New("RabbitMQ channel is not available")
	}

	c.mu.Lock()
	err := c.channel.Publish(
		"",      // exchange: default exchange
		c.queue, // routing key: the queue name
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		})
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return awaitConfirm(ctx, c.confirms, c.mu.Unlock)
}

// awaitConfirm waits for the confirm of the message just published and calls release once that
// confirm has been consumed. If ctx ends first the confirm is drained in the background before
// release, so the next publish never reads a confirm that belongs to this one.
func awaitConfirm(ctx context.Context, confirms <-chan amqp.Confirmation, release func()) error {
	select {
	case confirm, ok := <-confirms:
		release()
		if !ok {
			return errors.New("channel closed before publish was confirmed")
		}
		if !confirm.Ack {
			return fmt.Errorf("broker rejected message %d", confirm.DeliveryTag)
		}
		return nil
	case <-ctx.Done():
		go func() {
			<-confirms
			release()
		}()
		return fmt.Errorf("waiting for publish confirm: %w", ctx.Err())
	}
}

// Handler processes one delivery. Returning nil acks it; ErrReject drops it without requeue;
// any other error requeues it.
type Handler func(ctx context.Context, msg amqp.Delivery) error

// ErrReject marks a message that can never be processed, such as an undecodable body.
var ErrReject = errors.New("reject message")

// Consume starts workers consumers on their own channels, each with a prefetch of one so a
// job is held by exactly one worker at a time. Consumers stop when ctx is done.
func (c *Client) Consume(ctx context.Context, workers int, handler Handler) error {
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		ch, err := c.conn.Channel()
		if err != nil {
			return fmt.Errorf("failed to open consumer channel: %w", err)
		}
		if err := ch.Qos(1, 0, false); err != nil {
			ch.Close()
			return fmt.Errorf("failed to set prefetch: %w", err)
		}
		tag := fmt.Sprintf("%s-worker-%d", c.queue, i)
		msgs, err := ch.Consume(
			c.queue, // queue
			tag,     // consumer tag
			false,   // auto-ack: manual acknowledgement
			false,   // exclusive
			false,   // no-local
			false,   // no-wait
			nil,     // args
		)
		if err != nil {
			ch.Close()
			return fmt.Errorf("failed to register consumer: %w", err)
		}
		c.workers.Add(1)
		go func() {
			defer c.workers.Done()
			consumeLoop(ctx, ch, tag, msgs, handler)
		}()
	}
	log.Printf(" [*] %d workers waiting for messages on %s", workers, c.queue)
	return nil
}

func consumeLoop(ctx context.Context, ch *amqp.Channel, tag string, msgs <-chan amqp.Delivery, handler Handler) {
	defer ch.Close()
	for {
		select {
		case <-ctx.Done():
			if err := ch.Cancel(tag, false); err != nil {
				log.Printf("Error cancelling consumer %s: %v", tag, err)
			}
			return
		case msg, ok := <-msgs:
			if !ok {
				log.Printf("Consumer %s: delivery channel closed", tag)
				return
			}
			// A delivery in hand runs to completion even if shutdown starts meanwhile.
			settle(msg, handler(context.WithoutCancel(ctx), msg))
		}
	}
}

func settle(msg amqp.Delivery, err error) {
	switch {
	case err == nil:
		if ackErr := msg.Ack(false); ackErr != nil {
			log.Printf("Error acking message %d: %v", msg.DeliveryTag, ackErr)
		}
	case errors.Is(err, ErrReject):
		log.Printf("Rejecting message %d: %v", msg.DeliveryTag, err)
		if nackErr := msg.Nack(false, false); nackErr != nil {
			log.Printf("Error rejecting message %d: %v", msg.DeliveryTag, nackErr)
		}
	default:
		log.Printf("Error processing message %d, requeueing: %v", msg.DeliveryTag, err)
		if nackErr := msg.Nack(false, true); nackErr != nil {
			log.Printf("Error nacking message %d: %v", msg.DeliveryTag, nackErr)
		}
	}
}
