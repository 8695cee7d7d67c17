package notify_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"seifenshop/internal/domain/model"
	"seifenshop/internal/infra/db"
	infrarepo "seifenshop/internal/infra/repository"
	"seifenshop/internal/notify"
	repo "seifenshop/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSender struct {
	mock.Mock
}

func (m *mockSender) Send(ctx context.Context, msg notify.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func setupOutbox(t *testing.T) *infrarepo.EmailOutboxGormRepository {
	t.Helper()
	gdb, err := db.OpenMemory()
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	t.Cleanup(func() { db.Close(gdb) })
	return infrarepo.NewEmailOutboxGormRepository(gdb)
}

func enqueue(t *testing.T, outbox *infrarepo.EmailOutboxGormRepository, eventID string, recipient string, now time.Time) model.EmailOut {
	t.Helper()
	m, err := outbox.Enqueue(context.Background(), model.EmailOut{
		EventID:      eventID,
		Event:        model.EmailEventOrderConfirmed,
		Recipient:    recipient,
		TemplateData: `{"order_number":"ORD-20260101-ABCDEF"}`,
		Status:       model.DeliveryStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	require.NoError(t, err)
	return m
}

func byEventID(t *testing.T, outbox *infrarepo.EmailOutboxGormRepository) map[string]model.EmailOut {
	t.Helper()
	list, _, err := outbox.List(context.Background(), repo.EmailListFilter{Page: 1, Limit: 50})
	require.NoError(t, err)
	out := map[string]model.EmailOut{}
	for _, m := range list {
		out[m.EventID] = m
	}
	return out
}

func TestRelay_RunOnce_SentAndFailed(t *testing.T) {
	outbox := setupOutbox(t)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	enqueue(t, outbox, "ok-1", "ok@example.com", now)
	enqueue(t, outbox, "bad-1", "bad@example.com", now)

	sender := &mockSender{}
	sender.On("Send", mock.Anything, mock.MatchedBy(func(m notify.Message) bool { return m.Recipient == "ok@example.com" })).Return(nil)
	sender.On("Send", mock.Anything, mock.MatchedBy(func(m notify.Message) bool { return m.Recipient == "bad@example.com" })).Return(errors.New("smtp down"))

	relay := notify.NewRelay(outbox, sender, notify.RelayConfig{BatchSize: 10, MaxAttempts: 3, Lease: time.Minute}, clock)

	sent, err := relay.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	rows := byEventID(t, outbox)
	assert.Equal(t, model.DeliveryStatusSent, rows["ok-1"].Status)
	assert.Equal(t, 1, rows["ok-1"].Attempts)
	assert.NotNil(t, rows["ok-1"].SentAt)

	assert.Equal(t, model.DeliveryStatusFailed, rows["bad-1"].Status)
	assert.Equal(t, 1, rows["bad-1"].Attempts)
	assert.Equal(t, "smtp down", rows["bad-1"].LastError)

	sender.AssertExpectations(t)
}

func TestRelay_RetriesAfterLeaseAndGivesUp(t *testing.T) {
	outbox := setupOutbox(t)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	enqueue(t, outbox, "bad-1", "bad@example.com", now)

	sender := &mockSender{}
	sender.On("Send", mock.Anything, mock.Anything).Return(errors.New("broker unreachable"))

	relay := notify.NewRelay(outbox, sender, notify.RelayConfig{BatchSize: 10, MaxAttempts: 2, Lease: time.Minute}, clock)

	_, err := relay.RunOnce(context.Background())
	require.NoError(t, err)

	//リース内なので取られない
	_, err = relay.RunOnce(context.Background())
	require.NoError(t, err)
	sender.AssertNumberOfCalls(t, "Send", 1)

	now = now.Add(2 * time.Minute)
	_, err = relay.RunOnce(context.Background())
	require.NoError(t, err)
	sender.AssertNumberOfCalls(t, "Send", 2)

	//上限に達したのでもう送らない
	now = now.Add(2 * time.Minute)
	_, err = relay.RunOnce(context.Background())
	require.NoError(t, err)
	sender.AssertNumberOfCalls(t, "Send", 2)

	rows := byEventID(t, outbox)
	assert.Equal(t, model.DeliveryStatusFailed, rows["bad-1"].Status)
	assert.Equal(t, 2, rows["bad-1"].Attempts)
}

func TestRelay_ReclaimsStuckSending(t *testing.T) {
	outbox := setupOutbox(t)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	enqueue(t, outbox, "stuck-1", "a@example.com", now)

	//ワーカーが取ったまま落ちた状態
	claimed, err := outbox.ClaimBatch(context.Background(), now, time.Minute, 3, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	sender := &mockSender{}
	sender.On("Send", mock.Anything, mock.Anything).Return(nil)

	later := now.Add(5 * time.Minute)
	relay := notify.NewRelay(outbox, sender, notify.RelayConfig{BatchSize: 10, MaxAttempts: 3, Lease: time.Minute}, func() time.Time { return later })

	sent, err := relay.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, model.DeliveryStatusSent, byEventID(t, outbox)["stuck-1"].Status)
}

func TestLogSender_Send(t *testing.T) {
	err := notify.LogSender{}.Send(context.Background(), notify.Message{
		EventID: "x", Event: model.EmailEventOrderShipped, Recipient: "a@example.com", Data: []byte(`{}`),
	})
	assert.NoError(t, err)
}
