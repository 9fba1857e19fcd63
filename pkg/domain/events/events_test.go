package events_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/amirasaad/studentaid/pkg/domain/events"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventTypesRegistry(t *testing.T) {
	t.Parallel()
	for et, ctor := range events.EventTypes {
		assert.Equal(t, et.String(), ctor().Type(), "constructor for %s", et)
	}
}

func TestDonationRecordedPayload(t *testing.T) {
	t.Parallel()
	at := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	evt := &events.DonationRecorded{
		Meta:         events.NewMeta(7, at),
		DonationID:   "d_1",
		RequestID:    "r_1",
		DonorID:      "u_1",
		Amount:       decimal.NewFromInt(400),
		AmountRaised: decimal.NewFromInt(1100),
	}
	raw, err := json.Marshal(evt)
	require.NoError(t, err)

	decoded := events.EventTypes[events.EventTypeDonationRecorded]()
	require.NoError(t, json.Unmarshal(raw, decoded))
	got := decoded.(*events.DonationRecorded)
	assert.Equal(t, uint64(7), got.Version)
	assert.True(t, got.AmountRaised.Equal(decimal.NewFromInt(1100)))
}
