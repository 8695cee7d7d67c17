package notify

import (
	"context"
	"time"

	repo "seifenshop/internal/repository"

	"github.com/rs/zerolog/log"
)

type RelayConfig struct {
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
	//sendingのまま、または失敗からこの時間が経ったら再送対象
	Lease time.Duration
}

// アウトボックスの送信ワーカー。
// 注文の遷移とは別に動くので、送信の失敗で注文が巻き戻ることはない。
type Relay struct {
	outbox repo.EmailOutboxRepository
	sender Sender
	cfg    RelayConfig
	now    func() time.Time
}

func NewRelay(outbox repo.EmailOutboxRepository, sender Sender, cfg RelayConfig, now func() time.Time) *Relay {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.Lease <= 0 {
		cfg.Lease = time.Minute
	}
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Relay{outbox: outbox, sender: sender, cfg: cfg, now: now}
}

// ctxが終わるまでポーリングする
func (r *Relay) Run(ctx context.Context) error {
	log.Info().Dur("interval", r.cfg.PollInterval).Msg("email relay started")
	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if _, err := r.RunOnce(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("email relay batch failed")
		}
		select {
		case <-ctx.Done():
			log.Info().Msg("email relay stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// 1バッチ分を送る。送れた件数を返す
func (r *Relay) RunOnce(ctx context.Context) (int, error) {
	batch, err := r.outbox.ClaimBatch(ctx, r.now(), r.cfg.Lease, r.cfg.MaxAttempts, r.cfg.BatchSize)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, m := range batch {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}

		if err := r.sender.Send(ctx, messageFrom(m)); err != nil {
			attempt := m.Attempts + 1
			l := log.Warn()
			if attempt >= r.cfg.MaxAttempts {
				l = log.Error()
			}
			l.Err(err).
				Int64("email_id", m.ID).
				Str("event", string(m.Event)).
				Int("attempt", attempt).
				Int("max_attempts", r.cfg.MaxAttempts).
				Msg("email delivery failed")

			if mErr := r.outbox.MarkFailed(ctx, m.ID, truncate(err.Error(), 1000), r.now()); mErr != nil {
				return sent, mErr
			}
			continue
		}

		if err := r.outbox.MarkSent(ctx, m.ID, r.now()); err != nil {
			return sent, err
		}
		sent++
		log.Info().Int64("email_id", m.ID).Str("event", string(m.Event)).Str("recipient", m.Recipient).Msg("email delivered")
	}
	return sent, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
