package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ChangeKind says what happened to a wallet's transactions.
type ChangeKind string

const (
	ChangeCreated          ChangeKind = "created"
	ChangeRecurrentCreated ChangeKind = "recurrent_created"
	ChangeUpdated          ChangeKind = "updated"
	ChangeDeleted          ChangeKind = "deleted"
)

func (k ChangeKind) Valid() bool {
	switch k {
	case ChangeCreated, ChangeRecurrentCreated, ChangeUpdated, ChangeDeleted:
		return true
	}
	return false
}

// TransactionChangeMessage announces that a wallet's transactions changed.
// It carries ids only; receivers refetch the wallet to see the change.
type TransactionChangeMessage struct {
	ID            string     `json:"id"`
	Kind          ChangeKind `json:"kind"`
	WalletID      int64      `json:"wallet_id"`
	TransactionID int64      `json:"transaction_id,omitempty"`
	// Origin identifies the publishing process so it can skip its own echo.
	Origin    string    `json:"origin,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewTransactionChangeMessage creates a message with a fresh id.
func NewTransactionChangeMessage(kind ChangeKind, walletID, transactionID int64) *TransactionChangeMessage {
	return &TransactionChangeMessage{
		ID:            uuid.NewString(),
		Kind:          kind,
		WalletID:      walletID,
		TransactionID: transactionID,
		Timestamp:     time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *TransactionChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionChangeMessageFromJSON decodes and checks a message body.
func TransactionChangeMessageFromJSON(data []byte) (*TransactionChangeMessage, error) {
	var msg TransactionChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.WalletID <= 0 {
		return nil, errors.New("message without wallet id")
	}
	if !msg.Kind.Valid() {
		return nil, fmt.Errorf("unknown change kind %q", msg.Kind)
	}
	return &msg, nil
}
