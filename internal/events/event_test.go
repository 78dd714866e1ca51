package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderEventValidate(t *testing.T) {
	valid := OrderEvent{EventID: "e1", Type: TypeOrderCreated, Reference: "SF-1"}
	require.NoError(t, valid.Validate())

	missing := []OrderEvent{
		{Type: TypeOrderCreated, Reference: "SF-1"},
		{EventID: "e1", Reference: "SF-1"},
		{EventID: "e1", Type: TypeOrderCreated},
	}
	for _, e := range missing {
		assert.Error(t, e.Validate())
	}
}

func TestParseStreamEvent(t *testing.T) {
	occurred := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	e, err := parseStreamEvent(map[string]interface{}{
		"event_id":    "e1",
		"type":        TypeOrderPaid,
		"reference":   "SF-ABC123",
		"user_id":     "42",
		"total_cents": "3000",
		"status":      "paid",
		"occurred_at": occurred.Format(time.RFC3339Nano),
	})
	require.NoError(t, err)
	assert.Equal(t, "e1", e.EventID)
	assert.Equal(t, TypeOrderPaid, e.Type)
	assert.Equal(t, "SF-ABC123", e.Reference)
	assert.Equal(t, uint(42), e.UserID)
	assert.Equal(t, int64(3000), e.TotalCents)
	assert.Equal(t, "paid", e.Status)
	assert.True(t, e.OccurredAt.Equal(occurred))
}

func TestParseStreamEventRejectsGarbage(t *testing.T) {
	// Missing required field.
	_, err := parseStreamEvent(map[string]interface{}{
		"event_id": "e1",
		"type":     TypeOrderPaid,
	})
	require.Error(t, err)

	// Non-numeric amount.
	_, err = parseStreamEvent(map[string]interface{}{
		"event_id":    "e1",
		"type":        TypeOrderPaid,
		"reference":   "SF-1",
		"user_id":     "42",
		"total_cents": "a lot",
	})
	require.Error(t, err)
}

func TestGetStreamStringCoercions(t *testing.T) {
	values := map[string]interface{}{
		"s": "str",
		"b": []byte("bytes"),
		"i": int64(7),
		"f": float64(9),
	}
	for key, want := range map[string]string{"s": "str", "b": "bytes", "i": "7", "f": "9"} {
		got, err := getStreamString(values, key)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := getStreamString(values, "missing")
	assert.Error(t, err)
}
