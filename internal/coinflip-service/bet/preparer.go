package bet

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/radieske/coinflip-platform-poc/internal/coinflip-service/ledger"
)

var ErrInvalidAddress = errors.New("invalid player address")

// Prepared é a transação não assinada pronta para o jogador assinar fora.
type Prepared struct {
	TxBytes      []byte           // transação serializada, slots de assinatura vazios
	Blockhash    solana.Hash      // referência de bloco usada na construção
	ExpiryHeight uint64           // altura até a qual o blockhash permanece válido
	House        solana.PublicKey
	Price        uint64 // lamports
}

// Preparer monta a transferência jogador → casa no valor fixo da aposta.
type Preparer struct {
	ledger ledger.Client
	house  solana.PublicKey
	price  uint64
}

func NewPreparer(lc ledger.Client, house solana.PublicKey, price uint64) *Preparer {
	return &Preparer{ledger: lc, house: house, price: price}
}

// Prepare valida o endereço do jogador, busca um blockhash finalizado
// (commitment mais forte, pra minimizar expiração da referência) e devolve
// a transação serializada sem nenhuma assinatura — quem assina é o jogador,
// com a própria carteira.
func (p *Preparer) Prepare(ctx context.Context, playerAddress string) (*Prepared, error) {
	player, err := solana.PublicKeyFromBase58(playerAddress)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}

	blockhash, expiry, err := p.ledger.LatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return nil, err
	}

	ix := system.NewTransferInstruction(p.price, player, p.house).Build()
	tx, err := solana.NewTransaction(
		[]solana.Instruction{ix},
		blockhash,
		solana.TransactionPayer(player),
	)
	if err != nil {
		return nil, fmt.Errorf("build transaction: %w", err)
	}

	// serializa com slots de assinatura vazios (ninguém assinou ainda)
	tx.Signatures = make([]solana.Signature, tx.Message.Header.NumRequiredSignatures)
	raw, err := tx.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("serialize transaction: %w", err)
	}

	return &Prepared{
		TxBytes:      raw,
		Blockhash:    blockhash,
		ExpiryHeight: expiry,
		House:        p.house,
		Price:        p.price,
	}, nil
}
