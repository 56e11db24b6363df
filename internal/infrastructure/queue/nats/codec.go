package nats

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/plant-id-assistant/internal/core/domain"
)

const (
	headerContentType = "Content-Type"
	headerResultID    = "Result-Id"
)

func encodeEvent(subject string, event domain.IdentificationRecorded) (*nats.Msg, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encode identification event: %w", err)
	}
	msg := nats.NewMsg(subject)
	msg.Data = data
	msg.Header.Set(headerContentType, "application/json")
	msg.Header.Set(headerResultID, event.Result.ID)
	return msg, nil
}

func decodeEvent(msg *nats.Msg) (domain.IdentificationRecorded, error) {
	var event domain.IdentificationRecorded
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		return event, domain.WrapError(domain.ErrInvalidInput, "decode identification event", err)
	}
	if event.UserID == "" || event.Result.ID == "" {
		return event, domain.WrapError(domain.ErrInvalidInput, "decode identification event", fmt.Errorf("event is missing user or result id"))
	}
	return event, nil
}
