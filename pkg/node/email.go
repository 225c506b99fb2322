package node

import (
	"context"
	"net/http"
	"net/url"

	"github.com/Sternrassler/netsendo-nodes/pkg/model"
)

type emailSendParams struct {
	EmailAddress     string         `mapstructure:"emailAddress" validate:"required,email"`
	Subject          string         `mapstructure:"subject" validate:"required"`
	Content          string         `mapstructure:"content" validate:"required"`
	AdditionalFields map[string]any `mapstructure:"additionalFields"`
}

type emailSendBatchParams struct {
	Target          `mapstructure:",squash"`
	Subject         string   `mapstructure:"subject" validate:"required"`
	Content         string   `mapstructure:"content" validate:"required"`
	MailboxID       string   `mapstructure:"mailboxId"`
	ScheduleAt      string   `mapstructure:"scheduleAt"`
	ExcludedListIDs []string `mapstructure:"excludedListIds"`
}

type emailStatusParams struct {
	EmailID string `mapstructure:"emailId" validate:"required"`
}

func emailSend(ctx context.Context, api API, raw map[string]any) ([]model.Item, error) {
	var p emailSendParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	body := merge(model.Item{
		"email":   p.EmailAddress,
		"subject": p.Subject,
		"content": p.Content,
	}, p.AdditionalFields)
	return single(api.Do(ctx, http.MethodPost, "/email/send", body, nil))
}

func emailSendBatch(ctx context.Context, api API, raw map[string]any) ([]model.Item, error) {
	var p emailSendBatchParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}

	body := model.Item{
		"subject": p.Subject,
		"content": p.Content,
	}
	if p.MailboxID != "" {
		body["mailbox_id"] = p.MailboxID
	}
	if p.ScheduleAt != "" {
		body["schedule_at"] = p.ScheduleAt
	}
	if len(p.ExcludedListIDs) > 0 {
		body["excluded_list_ids"] = p.ExcludedListIDs
	}
	if err := p.Target.apply(body); err != nil {
		return nil, err
	}

	return single(api.Do(ctx, http.MethodPost, "/email/batch", body, nil))
}

func emailGetStatus(ctx context.Context, api API, raw map[string]any) ([]model.Item, error) {
	var p emailStatusParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	return single(api.Do(ctx, http.MethodGet, "/email/status/"+url.PathEscape(p.EmailID), nil, nil))
}

func emailListMailboxes(ctx context.Context, api API, _ map[string]any) ([]model.Item, error) {
	return many(api.Do(ctx, http.MethodGet, "/email/mailboxes", nil, nil))
}
