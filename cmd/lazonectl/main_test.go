package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/lazone/lazone-api/internal/domain/ledger"
	"github.com/lazone/lazone-api/internal/domain/listing"
	"github.com/lazone/lazone-api/internal/domain/manualpayment"
)

func TestPrintEntriesCountsOnlyActiveCredits(t *testing.T) {
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	expired := now.Add(-time.Hour)

	entries := []*ledger.Entry{
		{ID: uuid.New(), ProductID: "pack5", Rail: ledger.RailStripe, TransactionID: "pi_1", CreditsAmount: 5, CreditsUsed: 2, Status: ledger.StatusActive, PurchaseDate: now.AddDate(0, -1, 0)},
		{ID: uuid.New(), ProductID: "subscription.pro.monthly", Rail: ledger.RailAppStore, TransactionID: "2001", CreditsAmount: 15, Status: ledger.StatusActive, PurchaseDate: now.AddDate(0, -1, 0), ExpirationDate: &expired},
		{ID: uuid.New(), ProductID: "pack1", Rail: ledger.RailStripe, TransactionID: "pi_2", CreditsAmount: 1, Status: ledger.StatusRevoked, PurchaseDate: now},
	}

	var buf bytes.Buffer
	assert.NoError(t, printEntries(&buf, entries, now))

	out := buf.String()
	assert.Contains(t, out, "2/5")
	assert.Contains(t, out, "expired")
	assert.Contains(t, out, "revoked")
	assert.True(t, strings.HasSuffix(out, "available credits: 3\n"))
}

func TestPrintPayments(t *testing.T) {
	property := uuid.New()
	items := []*manualpayment.ReviewItem{{
		Payment: manualpayment.Payment{
			ID:             uuid.New(),
			Amount:         1000,
			Currency:       "XOF",
			SenderPhone:    "+221770000000",
			TransactionRef: "MM-ABC",
			ListingType:    listing.TypeRent,
			PropertyID:     uuid.NullUUID{UUID: property, Valid: true},
			Status:         manualpayment.StatusPending,
		},
		SubmitterName:  "Awa",
		SubmitterEmail: "awa@example.com",
	}}

	var buf bytes.Buffer
	assert.NoError(t, printPayments(&buf, items))
	assert.Contains(t, buf.String(), "1000.00 XOF")
	assert.Contains(t, buf.String(), "Awa <awa@example.com>")
	assert.Contains(t, buf.String(), property.String())
}

func TestApproveRejectsMalformedIDs(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)

	rootCmd.SetArgs([]string{"payments", "approve", "not-a-uuid", "--admin", uuid.NewString()})
	err := rootCmd.Execute()
	assert.ErrorContains(t, err, `invalid payment id "not-a-uuid"`)

	rootCmd.SetArgs([]string{"payments", "reject", uuid.NewString(), "--admin", "nobody"})
	err = rootCmd.Execute()
	assert.ErrorContains(t, err, `invalid admin id "nobody"`)
}
