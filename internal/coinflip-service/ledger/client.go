package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

var (
	ErrNotFound    = errors.New("transaction not found")
	ErrUnavailable = errors.New("ledger unavailable")
)

// Client abstrai o acesso ao ledger: blockhash recente, busca de transação
// por assinatura e envio de transação assinada.
type Client interface {
	LatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (solana.Hash, uint64, error)
	GetTransaction(ctx context.Context, sig solana.Signature, commitment rpc.CommitmentType) (*solana.Transaction, uint64, error)
	Submit(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
}

// RPC implementa Client sobre o JSON-RPC da Solana.
// O cliente é stateless e seguro para uso concorrente.
type RPC struct {
	cl *rpc.Client
}

func NewRPC(endpoint string) *RPC { return &RPC{cl: rpc.New(endpoint)} }

// LatestBlockhash retorna o blockhash mais recente no nível de commitment
// pedido e a altura de bloco até a qual ele permanece válido.
func (r *RPC) LatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (solana.Hash, uint64, error) {
	out, err := r.cl.GetLatestBlockhash(ctx, commitment)
	if err != nil {
		return solana.Hash{}, 0, fmt.Errorf("%w: latest blockhash: %v", ErrUnavailable, err)
	}
	return out.Value.Blockhash, out.Value.LastValidBlockHeight, nil
}

// GetTransaction busca uma transação pelo par assinatura+commitment.
// Retorna ErrNotFound quando o nó não conhece a assinatura.
func (r *RPC) GetTransaction(ctx context.Context, sig solana.Signature, commitment rpc.CommitmentType) (*solana.Transaction, uint64, error) {
	out, err := r.cl.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: commitment,
	})
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, 0, ErrNotFound
		}
		return nil, 0, fmt.Errorf("%w: get transaction: %v", ErrUnavailable, err)
	}
	if out == nil || out.Transaction == nil {
		return nil, 0, ErrNotFound
	}
	tx, err := out.Transaction.GetTransaction()
	if err != nil {
		return nil, 0, fmt.Errorf("%w: decode transaction: %v", ErrUnavailable, err)
	}
	return tx, out.Slot, nil
}

// Submit envia uma transação assinada. Não há retry aqui: reenviar às cegas
// poderia duplicar o pagamento.
func (r *RPC) Submit(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	sig, err := r.cl.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("%w: submit: %v", ErrUnavailable, err)
	}
	return sig, nil
}
