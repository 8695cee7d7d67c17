package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/streadway/amqp"
)

const publishTimeout = 5 * time.Second

var ErrNotConfirmed = errors.New("message published but not confirmed by broker")

// メール送信ジョブをRabbitMQのexchangeに流す。
// 配信サービス側がキューを購読して実際に送る。ルーティングキーはイベント名。
type AMQPSender struct {
	url      string
	exchange string

	mu        sync.Mutex
	conn      *amqp.Connection
	ch        *amqp.Channel
	confirms  chan amqp.Confirmation
	connClose chan *amqp.Error
}

func NewAMQPSender(url string, exchange string) *AMQPSender {
	return &AMQPSender{url: url, exchange: exchange}
}

// 接続はSendの中で必要になったときに張る（切れていたら張り直す）
func (s *AMQPSender) connect() error {
	if s.conn != nil && !s.conn.IsClosed() && s.ch != nil {
		select {
		case err := <-s.connClose:
			log.Warn().Err(err).Msg("amqp connection lost, reconnecting")
		default:
			return nil
		}
	}
	s.closeLocked()

	conn, err := amqp.Dial(s.url)
	if err != nil {
		return fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	if err := ch.Confirm(false); err != nil {
		_ = conn.Close()
		return fmt.Errorf("confirm mode: %w", err)
	}
	if err := ch.ExchangeDeclare(
		s.exchange, // name
		"topic",    // type
		true,       // durable
		false,      // auto-deleted
		false,      // internal
		false,      // no-wait
		nil,        // arguments
	); err != nil {
		_ = conn.Close()
		return fmt.Errorf("declare exchange %s: %w", s.exchange, err)
	}

	s.conn = conn
	s.ch = ch
	s.confirms = ch.NotifyPublish(make(chan amqp.Confirmation, 1))
	s.connClose = conn.NotifyClose(make(chan *amqp.Error, 1))
	log.Info().Str("exchange", s.exchange).Msg("amqp mail sender connected")
	return nil
}

func (s *AMQPSender) Send(ctx context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.connect(); err != nil {
		return err
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	err = s.ch.Publish(
		s.exchange,        // exchange
		string(msg.Event), // routing key
		false,             // mandatory
		false,             // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    msg.EventID,
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		s.closeLocked()
		return fmt.Errorf("publish: %w", err)
	}

	select {
	case confirm, ok := <-s.confirms:
		if !ok {
			s.closeLocked()
			return errors.New("confirm channel closed")
		}
		if !confirm.Ack {
			return ErrNotConfirmed
		}
		return nil
	case <-time.After(publishTimeout):
		//届いたかどうか分からないので、チャネルを作り直して次回やり直す
		s.closeLocked()
		return errors.New("publish confirmation timeout")
	case <-ctx.Done():
		s.closeLocked()
		return ctx.Err()
	}
}

func (s *AMQPSender) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
}

func (s *AMQPSender) closeLocked() {
	if s.ch != nil {
		_ = s.ch.Close()
		s.ch = nil
	}
	if s.conn != nil && !s.conn.IsClosed() {
		_ = s.conn.Close()
	}
	s.conn = nil
	s.confirms = nil
	s.connClose = nil
}
