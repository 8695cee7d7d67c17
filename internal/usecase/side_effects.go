package usecase

import (
	"context"
	"encoding/json"
	"time"

	"seifenshop/internal/domain/model"
	repo "seifenshop/internal/repository"
)

// 監査ログを作成
// 「誰が」「何を」「どの対象に」「どう変えたか」を残す
func writeAudit(
	ctx context.Context,
	r repo.TxRepos,
	actorUserID int64,
	action model.AuditAction,
	resourceType model.AuditResourceType,
	resourceID int64,
	before any,
	after any,
	now time.Time,
) error {
	beforeJSON, err := toJSON(before)
	if err != nil {
		return err
	}
	afterJSON, err := toJSON(after)
	if err != nil {
		return err
	}
	return r.AuditLogs().Append(ctx, model.AuditLog{
		ActorUserID:  actorUserID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Before:       beforeJSON,
		After:        afterJSON,
		CreatedAt:    now,
	})
}

func toJSON(v any) (string, error) {
	if v == nil {
		return "", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// メールはアウトボックスに積むだけ。送信はnotify.Relayが別に行う
type emailJob struct {
	Event     model.EmailEvent
	Recipient string
	Data      map[string]any
	OrderID   *int64
	InquiryID *int64
}

func enqueueEmail(ctx context.Context, r repo.TxRepos, ids IDGenerator, now time.Time, job emailJob) error {
	data, err := toJSON(job.Data)
	if err != nil {
		return err
	}
	if data == "" {
		data = "{}"
	}
	_, err = r.Emails().Enqueue(ctx, model.EmailOut{
		EventID:      ids.NewID(),
		Event:        job.Event,
		Recipient:    job.Recipient,
		TemplateData: data,
		OrderID:      job.OrderID,
		InquiryID:    job.InquiryID,
		Status:       model.DeliveryStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	return err
}
