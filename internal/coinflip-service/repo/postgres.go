package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrAlreadySettled = errors.New("signature already settled")
	ErrNotFound       = errors.New("not found")
)

// Postgres implementa a persistência de liquidações.
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// Claim é o check-and-insert atômico por assinatura, adquirido antes do
// sorteio. A unique constraint em signature garante que só uma liquidação
// concorrente prossegue; as demais recebem ErrAlreadySettled.
func (p *Postgres) Claim(ctx context.Context, signature, player string, wagerLamports int64) error {
	res, err := p.db.ExecContext(ctx, `
		INSERT INTO settlements (id, signature, player, wager_lamports, status)
		VALUES ($1,$2,$3,$4,'PENDING')
		ON CONFLICT (signature) DO NOTHING`,
		uuid.NewString(), signature, player, wagerLamports,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrAlreadySettled
	}
	return nil
}

// Get retorna a liquidação registrada para a assinatura.
func (p *Postgres) Get(ctx context.Context, signature string) (*Settlement, error) {
	var s Settlement
	err := p.db.QueryRowContext(ctx, `
		SELECT id, signature, player, wager_lamports, outcome, payout_signature, status, created_at, updated_at
		FROM settlements WHERE signature=$1`, signature,
	).Scan(&s.ID, &s.Signature, &s.Player, &s.WagerLamports, &s.Outcome, &s.PayoutSignature, &s.Status, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Complete grava o desfecho do sorteio (e a assinatura do prêmio, se houver).
func (p *Postgres) Complete(ctx context.Context, signature, outcome, payoutSignature string) error {
	var payout sql.NullString
	if payoutSignature != "" {
		payout = sql.NullString{String: payoutSignature, Valid: true}
	}
	_, err := p.db.ExecContext(ctx, `
		UPDATE settlements SET status='SETTLED', outcome=$1, payout_signature=$2, updated_at=NOW()
		WHERE signature=$3`, outcome, payout, signature)
	return err
}

// MarkPayoutFailed registra falha no envio do prêmio após um sorteio
// vencedor. A reivindicação não é liberada: liberar permitiria re-sorteio.
func (p *Postgres) MarkPayoutFailed(ctx context.Context, signature string) error {
	_, err := p.db.ExecContext(ctx, `
		UPDATE settlements SET status='PAYOUT_FAILED', outcome='win', updated_at=NOW()
		WHERE signature=$1`, signature)
	return err
}
