package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent(t *testing.T) {
	payload := map[string]interface{}{
		"id":         "d2f6d3a8-0000-0000-0000-000000000001",
		"clientName": "Maria Gomez",
		"totalOwed":  "1100.00",
	}

	before := time.Now()
	evt := NewEvent(EventTypeCreated, EntityTypeLoan, payload)
	after := time.Now()

	assert.Equal(t, "loan.created", evt.Type)
	assert.Equal(t, EntityTypeLoan, evt.Entity)
	assert.Equal(t, payload, evt.Payload)
	assert.True(t, !evt.Timestamp.Before(before) && !evt.Timestamp.After(after))
}

func TestEvent_ToJSON(t *testing.T) {
	evt := NewEvent(EventTypeUpdated, EntityTypeLoan, map[string]interface{}{"id": "abc"})

	data, err := evt.ToJSON()
	require.NoError(t, err)
	assert.NotEmpty(t, data)

	var decoded map[string]interface{}
	err = json.Unmarshal(data, &decoded)
	require.NoError(t, err)

	assert.Equal(t, "loan.updated", decoded["type"])
	assert.Equal(t, "loan", decoded["entity"])
	assert.NotNil(t, decoded["payload"])
	assert.NotNil(t, decoded["timestamp"])
}

func TestEvent_Helpers(t *testing.T) {
	payload := map[string]interface{}{"id": "abc"}

	t.Run("LoanCreated", func(t *testing.T) {
		evt := LoanCreated(payload)
		assert.Equal(t, "loan.created", evt.Type)
		assert.Equal(t, EntityTypeLoan, evt.Entity)
	})

	t.Run("LoanCompleted", func(t *testing.T) {
		evt := LoanCompleted(payload)
		assert.Equal(t, "loan.completed", evt.Type)
		assert.Equal(t, EntityTypeLoan, evt.Entity)
	})

	t.Run("LoanDeleted", func(t *testing.T) {
		evt := LoanDeleted(payload)
		assert.Equal(t, "loan.deleted", evt.Type)
	})

	t.Run("PaymentRecorded", func(t *testing.T) {
		evt := PaymentRecorded(payload)
		assert.Equal(t, "payment.created", evt.Type)
		assert.Equal(t, EntityTypePayment, evt.Entity)
	})

	t.Run("CycleRenewed", func(t *testing.T) {
		evt := CycleRenewed(payload)
		assert.Equal(t, "cycle.renewed", evt.Type)
		assert.Equal(t, EntityTypeCycle, evt.Entity)
	})

	t.Run("ReplicaSynced", func(t *testing.T) {
		evt := ReplicaSynced(payload)
		assert.Equal(t, "replica.synced", evt.Type)
		assert.Equal(t, EntityTypeReplica, evt.Entity)
	})
}
