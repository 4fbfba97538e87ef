package appstore

import (
	"fmt"
	"strconv"
	"time"
)

// Transaction is one purchase inside a validated receipt
type Transaction struct {
	ProductID             string
	TransactionID         string
	OriginalTransactionID string
	PurchaseDate          time.Time
	ExpiresDate           *time.Time
	Cancelled             bool
}

// Receipt is a validated App Store receipt
type Receipt struct {
	BundleID     string
	Environment  string
	Transactions []Transaction
}

// FindTransaction returns the transaction with id, if the receipt contains it.
func (r *Receipt) FindTransaction(id string) (Transaction, bool) {
	for _, tx := range r.Transactions {
		if tx.TransactionID == id {
			return tx, true
		}
	}
	return Transaction{}, false
}

func newReceipt(resp *verifyResponse) (*Receipt, error) {
	r := &Receipt{BundleID: resp.Receipt.BundleID, Environment: resp.Environment}
	seen := make(map[string]bool)

	// latest_receipt_info carries renewals missing from in_app
	all := append(append([]transaction{}, resp.Receipt.InApp...), resp.LatestReceiptInfo...)
	for _, raw := range all {
		if raw.TransactionID == "" || seen[raw.TransactionID] {
			continue
		}
		seen[raw.TransactionID] = true

		tx, err := raw.parse()
		if err != nil {
			return nil, err
		}
		r.Transactions = append(r.Transactions, tx)
	}
	return r, nil
}

func (t transaction) parse() (Transaction, error) {
	purchased, err := parseMillis(t.PurchaseDateMS)
	if err != nil {
		return Transaction{}, fmt.Errorf("transaction %s purchase date: %w", t.TransactionID, err)
	}

	tx := Transaction{
		ProductID:             t.ProductID,
		TransactionID:         t.TransactionID,
		OriginalTransactionID: t.OriginalTransactionID,
		PurchaseDate:          purchased,
		Cancelled:             t.CancellationDateMS != "",
	}
	if t.ExpiresDateMS != "" {
		expires, err := parseMillis(t.ExpiresDateMS)
		if err != nil {
			return Transaction{}, fmt.Errorf("transaction %s expires date: %w", t.TransactionID, err)
		}
		tx.ExpiresDate = &expires
	}
	return tx, nil
}

func parseMillis(s string) (time.Time, error) {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms).UTC(), nil
}
