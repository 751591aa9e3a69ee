package verify

import (
	"context"
	"errors"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/radieske/coinflip-platform-poc/internal/coinflip-service/ledger"
)

var (
	ErrNotFound = errors.New("payment transaction not found")
	ErrMismatch = errors.New("no matching wager transfer")
)

// Payment é o pagamento confirmado, sempre re-derivado do ledger na hora da
// liquidação — nunca persistido.
type Payment struct {
	Signature solana.Signature
	Sender    solana.PublicKey
	Recipient solana.PublicKey
	Amount    uint64 // lamports
	Slot      uint64 // bloco que contém a transação
}

// TxCache é um cache curto de transações buscadas, keyed por assinatura.
// Serve só pra evitar fetch duplicado dentro de uma tentativa de liquidação;
// idempotência de liquidação é responsabilidade do repo, não daqui.
type TxCache interface {
	Get(ctx context.Context, sig solana.Signature) (*solana.Transaction, uint64, bool)
	Set(ctx context.Context, sig solana.Signature, tx *solana.Transaction, slot uint64)
}

// Verifier confere se a transação apontada pela assinatura realmente
// transfere o valor exato da aposta do jogador para a casa.
type Verifier struct {
	log    *zap.Logger
	ledger ledger.Client
	cache  TxCache // opcional
	house  solana.PublicKey
	price  uint64
}

func NewVerifier(log *zap.Logger, lc ledger.Client, cache TxCache, house solana.PublicKey, price uint64) *Verifier {
	return &Verifier{log: log, ledger: lc, cache: cache, house: house, price: price}
}

// Verify busca a transação em commitment "confirmed" e varre as instruções
// compiladas em ordem. A primeira instrução do system program que decodifica
// como transferência com origem = jogador, destino = casa e valor exatamente
// igual ao preço configurado é aceita. Falha de decodificação em uma
// instrução vira diagnóstico e o scan continua; sem match, ErrMismatch.
func (v *Verifier) Verify(ctx context.Context, sig solana.Signature, player solana.PublicKey) (*Payment, error) {
	tx, slot, err := v.fetch(ctx, sig)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	msg := &tx.Message
	for i, ci := range msg.Instructions {
		if int(ci.ProgramIDIndex) >= len(msg.AccountKeys) {
			v.log.Warn("instruction program index out of range",
				zap.String("signature", sig.String()), zap.Int("instruction", i))
			continue
		}
		if !msg.AccountKeys[ci.ProgramIDIndex].Equals(system.ProgramID) {
			continue
		}

		tr, derr := DecodeTransfer(msg, ci)
		if derr != nil {
			v.log.Warn("transfer decode failed",
				zap.String("signature", sig.String()), zap.Int("instruction", i), zap.Error(derr))
			continue
		}

		// igualdade exata, sem tolerância
		if tr.Source.Equals(player) && tr.Dest.Equals(v.house) && tr.Lamports == v.price {
			return &Payment{
				Signature: sig,
				Sender:    tr.Source,
				Recipient: tr.Dest,
				Amount:    tr.Lamports,
				Slot:      slot,
			}, nil
		}
	}

	return nil, ErrMismatch
}

func (v *Verifier) fetch(ctx context.Context, sig solana.Signature) (*solana.Transaction, uint64, error) {
	if v.cache != nil {
		if tx, slot, ok := v.cache.Get(ctx, sig); ok {
			return tx, slot, nil
		}
	}
	tx, slot, err := v.ledger.GetTransaction(ctx, sig, rpc.CommitmentConfirmed)
	if err != nil {
		return nil, 0, err
	}
	if v.cache != nil {
		v.cache.Set(ctx, sig, tx, slot)
	}
	return tx, slot, nil
}
