package repo

import (
	"database/sql"
	"time"
)

// Status de uma liquidação persistida.
const (
	StatusPending      = "PENDING"
	StatusSettled      = "SETTLED"
	StatusPayoutFailed = "PAYOUT_FAILED"
)

// Settlement é a linha persistida por assinatura de pagamento.
// É o registro de idempotência: uma assinatura só é sorteada uma vez.
type Settlement struct {
	ID              string
	Signature       string
	Player          string
	WagerLamports   int64
	Outcome         sql.NullString // "win" | "lose"
	PayoutSignature sql.NullString
	Status          string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
