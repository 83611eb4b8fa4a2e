package refresh

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/mkravets/gamescout/internal/agent"
	"github.com/mkravets/gamescout/internal/storefront"
)

// RefreshMessage is the payload of one queued refresh job.
type RefreshMessage struct {
	GameID string `json:"game_id"`
}

// Publisher enqueues refresh jobs. Queue topology: a failed job dead-letters
// to <queue>.dlq, and <queue>.retry TTLs messages back onto the main queue.
type Publisher struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

func NewPublisher(url, queue string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := declareTopology(ch, queue); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	return &Publisher{conn: conn, ch: ch, queue: queue}, nil
}

func declareTopology(ch *amqp.Channel, queue string) error {
	if _, err := ch.QueueDeclare(queue+".dlq", true, false, false, false, nil); err != nil {
		return err
	}
	if _, err := ch.QueueDeclare(queue+".retry", true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": queue,
	}); err != nil {
		return err
	}
	_, err := ch.QueueDeclare(queue, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": queue + ".dlq",
	})
	return err
}

func (p *Publisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

func (p *Publisher) PublishRefresh(ctx context.Context, gameID string) error {
	body, err := json.Marshal(RefreshMessage{GameID: gameID})
	if err != nil {
		return err
	}
	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return p.ch.PublishWithContext(cctx,
		"",      // default exchange
		p.queue, // routing key = queue
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
}

// Consumer drains refresh jobs with a bounded worker pool, acking only after
// the storefront update was applied. It must share the serving process's
// agent: the agent's in-memory store, ledger and cooldown state are the
// single write path, so a consumer over a separate agent would detect deltas
// against stale priors and emit events the API never surfaces.
type Consumer struct {
	Agent       *agent.Service
	Steam       *storefront.Steam
	URL         string
	Queue       string
	Concurrency int
	Log         zerolog.Logger
}

func (c *Consumer) Run(ctx context.Context) error {
	concurrency := c.Concurrency
	if concurrency <= 0 {
		concurrency = 2
	}
	if concurrency > 50 {
		concurrency = 50
	}

	conn, err := amqp.Dial(c.URL)
	if err != nil {
		return err
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if err := declareTopology(ch, c.Queue); err != nil {
		return err
	}
	if err := ch.Qos(concurrency, 0, false); err != nil {
		return err
	}
	msgs, err := ch.Consume(c.Queue, "", false, false, false, false, nil)
	if err != nil {
		return err
	}

	c.Log.Info().Str("queue", c.Queue).Int("concurrency", concurrency).Msg("refresh worker started")

	jobs := make(chan amqp.Delivery, concurrency*2)
	var wg sync.WaitGroup
	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func(workerID int) {
			defer wg.Done()
			for d := range jobs {
				start := time.Now()
				if err := c.process(ctx, d.Body); err != nil {
					c.Log.Warn().Int("worker", workerID).
						Dur("cost", time.Since(start)).Err(err).Msg("refresh job failed")
					_ = d.Nack(false, false)
					continue
				}
				if err := d.Ack(false); err != nil {
					c.Log.Warn().Int("worker", workerID).Err(err).Msg("ack failed")
				}
			}
		}(i)
	}

	for {
		select {
		case <-ctx.Done():
			c.Log.Info().Msg("refresh worker shutting down")
			close(jobs)
			wg.Wait()
			return nil
		case d, ok := <-msgs:
			if !ok {
				c.Log.Warn().Msg("delivery channel closed")
				time.Sleep(time.Second)
				continue
			}
			jobs <- d
		}
	}
}

// process handles one queued job payload against the shared agent.
func (c *Consumer) process(ctx context.Context, body []byte) error {
	var m RefreshMessage
	if err := json.Unmarshal(body, &m); err != nil {
		return fmt.Errorf("bad refresh message: %w", err)
	}
	if m.GameID == "" {
		return errors.New("refresh message without game id")
	}
	return RefreshGame(ctx, c.Agent, c.Steam, m.GameID)
}
