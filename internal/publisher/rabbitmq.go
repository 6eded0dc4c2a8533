package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"news_curator/internal/domain"
)

type RabbitMQ struct {
	conn             *amqp.Connection
	channel          *amqp.Channel
	exchange         string
	reportRoutingKey string
	alertRoutingKey  string
	logger           *slog.Logger
}

type Config struct {
	URL              string
	Exchange         string
	ReportRoutingKey string
	AlertRoutingKey  string
	QueueName        string
}

func NewRabbitMQ(cfg Config, logger *slog.Logger) (*RabbitMQ, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		cfg.Exchange,
		"direct",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	q, err := ch.QueueDeclare(
		cfg.QueueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	for _, key := range []string{cfg.ReportRoutingKey, cfg.AlertRoutingKey} {
		if err := ch.QueueBind(q.Name, key, cfg.Exchange, false, nil); err != nil {
			ch.Close()
			conn.Close()
			return nil, fmt.Errorf("bind queue to %s: %w", key, err)
		}
	}

	logger.Info("connected to rabbitmq",
		"exchange", cfg.Exchange,
		"queue", cfg.QueueName,
	)

	return &RabbitMQ{
		conn:             conn,
		channel:          ch,
		exchange:         cfg.Exchange,
		reportRoutingKey: cfg.ReportRoutingKey,
		alertRoutingKey:  cfg.AlertRoutingKey,
		logger:           logger,
	}, nil
}

type RunReportMessage struct {
	Report    domain.RunReport `json:"report"`
	Timestamp time.Time        `json:"timestamp"`
}

type TrustAlertMessage struct {
	Records   []domain.SourceTrustRecord `json:"records"`
	Timestamp time.Time                  `json:"timestamp"`
}

func (r *RabbitMQ) PublishReport(ctx context.Context, report *domain.RunReport) error {
	msg := RunReportMessage{
		Report:    *report,
		Timestamp: time.Now().UTC(),
	}

	if err := r.publish(ctx, r.reportRoutingKey, msg); err != nil {
		return err
	}

	r.logger.Debug("published run report", "run_id", report.RunID)
	return nil
}

func (r *RabbitMQ) PublishTrustAlerts(ctx context.Context, records []domain.SourceTrustRecord) error {
	msg := TrustAlertMessage{
		Records:   records,
		Timestamp: time.Now().UTC(),
	}

	if err := r.publish(ctx, r.alertRoutingKey, msg); err != nil {
		return err
	}

	r.logger.Debug("published trust alerts", "count", len(records))
	return nil
}

func (r *RabbitMQ) publish(ctx context.Context, routingKey string, msg any) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	err = r.channel.PublishWithContext(
		ctx,
		r.exchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	return nil
}

func (r *RabbitMQ) Close() error {
	if r.channel != nil {
		r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
