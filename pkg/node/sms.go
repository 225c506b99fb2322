package node

import (
	"context"
	"net/http"
	"net/url"

	"github.com/Sternrassler/netsendo-nodes/pkg/model"
)

type smsSendParams struct {
	PhoneNumber      string         `mapstructure:"phoneNumber" validate:"required"`
	Message          string         `mapstructure:"message" validate:"required"`
	AdditionalFields map[string]any `mapstructure:"additionalFields"`
}

type smsSendBatchParams struct {
	TargetType       string         `mapstructure:"targetType" validate:"required,oneof=list tags"`
	ContactListID    string         `mapstructure:"contactListId" validate:"required_if=TargetType list"`
	Tags             string         `mapstructure:"tags" validate:"required_if=TargetType tags"`
	Message          string         `mapstructure:"message" validate:"required"`
	AdditionalFields map[string]any `mapstructure:"additionalFields"`
}

type smsStatusParams struct {
	SMSID string `mapstructure:"smsId" validate:"required"`
}

func smsSend(ctx context.Context, api API, raw map[string]any) ([]model.Item, error) {
	var p smsSendParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	body := merge(model.Item{
		"phone_number": p.PhoneNumber,
		"message":      p.Message,
	}, p.AdditionalFields)
	return single(api.Do(ctx, http.MethodPost, "/sms/send", body, nil))
}

func smsSendBatch(ctx context.Context, api API, raw map[string]any) ([]model.Item, error) {
	var p smsSendBatchParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}

	body := merge(model.Item{"message": p.Message}, p.AdditionalFields)
	target := Target{TargetType: p.TargetType, ContactListID: p.ContactListID, Tags: p.Tags}
	if err := target.apply(body); err != nil {
		return nil, err
	}

	return single(api.Do(ctx, http.MethodPost, "/sms/batch", body, nil))
}

func smsGetStatus(ctx context.Context, api API, raw map[string]any) ([]model.Item, error) {
	var p smsStatusParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	return single(api.Do(ctx, http.MethodGet, "/sms/status/"+url.PathEscape(p.SMSID), nil, nil))
}

func smsListProviders(ctx context.Context, api API, _ map[string]any) ([]model.Item, error) {
	return many(api.Do(ctx, http.MethodGet, "/sms/providers", nil, nil))
}
