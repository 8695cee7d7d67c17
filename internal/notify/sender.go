package notify

import (
	"context"
	"encoding/json"

	"seifenshop/internal/domain/model"

	"github.com/rs/zerolog/log"
)

// メール送信の約束。テンプレートの描画と配信は外部（メール配信サービス）が行う
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// 送信1件分
type Message struct {
	EventID   string           `json:"event_id"`
	Event     model.EmailEvent `json:"event"`
	Recipient string           `json:"recipient"`
	Data      json.RawMessage  `json:"template_data"`
}

func messageFrom(m model.EmailOut) Message {
	data := json.RawMessage(m.TemplateData)
	if len(data) == 0 || !json.Valid(data) {
		data = json.RawMessage("{}")
	}
	return Message{
		EventID:   m.EventID,
		Event:     m.Event,
		Recipient: m.Recipient,
		Data:      data,
	}
}

// ログに出すだけ（開発用・MAIL_TRANSPORT=log）
type LogSender struct{}

func (LogSender) Send(ctx context.Context, msg Message) error {
	log.Info().
		Str("event_id", msg.EventID).
		Str("event", string(msg.Event)).
		Str("recipient", msg.Recipient).
		RawJSON("data", msg.Data).
		Msg("email (log transport)")
	return nil
}
