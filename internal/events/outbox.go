package events

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	rd "github.com/redis/go-redis/v9"
)

// Outbox writes events to a Redis Stream. XADD is cheap and local to the
// request path; the relay owns delivery to Kafka.
type Outbox struct {
	rdb    *rd.Client
	stream string
}

func NewOutbox(rdb *rd.Client, stream string) *Outbox {
	return &Outbox{rdb: rdb, stream: stream}
}

func (o *Outbox) Publish(ctx context.Context, e OrderEvent) error {
	if e.EventID == "" {
		e.EventID = uuid.New().String()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	if err := e.Validate(); err != nil {
		return err
	}
	return o.rdb.XAdd(ctx, &rd.XAddArgs{
		Stream: o.stream,
		Values: map[string]interface{}{
			"event_id":    e.EventID,
			"type":        e.Type,
			"reference":   e.Reference,
			"user_id":     strconv.FormatUint(uint64(e.UserID), 10),
			"total_cents": strconv.FormatInt(e.TotalCents, 10),
			"status":      e.Status,
			"occurred_at": e.OccurredAt.Format(time.RFC3339Nano),
		},
	}).Err()
}

func parseStreamEvent(values map[string]interface{}) (OrderEvent, error) {
	eventID, err := getStreamString(values, "event_id")
	if err != nil {
		return OrderEvent{}, err
	}
	typ, err := getStreamString(values, "type")
	if err != nil {
		return OrderEvent{}, err
	}
	reference, err := getStreamString(values, "reference")
	if err != nil {
		return OrderEvent{}, err
	}
	userStr, err := getStreamString(values, "user_id")
	if err != nil {
		return OrderEvent{}, err
	}
	totalStr, err := getStreamString(values, "total_cents")
	if err != nil {
		return OrderEvent{}, err
	}
	status, _ := getStreamString(values, "status")
	occurredStr, _ := getStreamString(values, "occurred_at")

	userID, err := strconv.ParseUint(userStr, 10, 32)
	if err != nil {
		return OrderEvent{}, fmt.Errorf("invalid user_id %q", userStr)
	}
	total, err := strconv.ParseInt(totalStr, 10, 64)
	if err != nil {
		return OrderEvent{}, fmt.Errorf("invalid total_cents %q", totalStr)
	}
	occurredAt, _ := time.Parse(time.RFC3339Nano, occurredStr)

	e := OrderEvent{
		EventID:    eventID,
		Type:       typ,
		Reference:  reference,
		UserID:     uint(userID),
		TotalCents: total,
		Status:     status,
		OccurredAt: occurredAt,
	}
	if err := e.Validate(); err != nil {
		return OrderEvent{}, err
	}
	return e, nil
}

func getStreamString(values map[string]interface{}, key string) (string, error) {
	v, ok := values[key]
	if !ok {
		return "", fmt.Errorf("missing field %s", key)
	}
	switch x := v.(type) {
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case float64:
		return strconv.FormatInt(int64(x), 10), nil
	default:
		return "", fmt.Errorf("unsupported field type %s: %T", key, v)
	}
}
