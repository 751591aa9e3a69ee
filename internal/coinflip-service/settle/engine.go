package settle

import (
	"context"
	"errors"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/radieske/coinflip-platform-poc/internal/coinflip-service/house"
	"github.com/radieske/coinflip-platform-poc/internal/coinflip-service/ledger"
	"github.com/radieske/coinflip-platform-poc/internal/coinflip-service/metrics"
	"github.com/radieske/coinflip-platform-poc/internal/coinflip-service/repo"
	"github.com/radieske/coinflip-platform-poc/internal/coinflip-service/verify"
	"github.com/radieske/coinflip-platform-poc/pkg/contracts/events"
)

const (
	OutcomeWin  = "win"
	OutcomeLose = "lose"
)

// Store é o guarda de idempotência por assinatura de pagamento.
type Store interface {
	Claim(ctx context.Context, signature, player string, wagerLamports int64) error
	Get(ctx context.Context, signature string) (*repo.Settlement, error)
	Complete(ctx context.Context, signature, outcome, payoutSignature string) error
	MarkPayoutFailed(ctx context.Context, signature string) error
}

// Publisher emite o evento de liquidação (melhor esforço).
type Publisher interface {
	PublishWagerSettled(ctx context.Context, e events.WagerSettled) error
}

// Result é o desfecho de uma liquidação.
type Result struct {
	Outcome         string
	PayoutSignature *solana.Signature // presente somente em vitória
}

// Engine orquestra a liquidação: verificação do pagamento, reivindicação da
// assinatura, sorteio e — em vitória — construção, assinatura e envio do
// prêmio (2× a aposta) pela chave da casa.
type Engine struct {
	log      *zap.Logger
	verifier *verify.Verifier
	ledger   ledger.Client
	house    *house.Custodian
	store    Store
	publ     Publisher // opcional
	rng      Rand
	price    uint64
}

func NewEngine(log *zap.Logger, v *verify.Verifier, lc ledger.Client, c *house.Custodian, store Store, publ Publisher, rng Rand, price uint64) *Engine {
	return &Engine{log: log, verifier: v, ledger: lc, house: c, store: store, publ: publ, rng: rng, price: price}
}

// Settle liquida uma aposta. Erros do verificador e do ledger propagam
// intocados. O replay de uma assinatura já liquidada devolve o resultado
// original; uma liquidação concorrente em andamento recebe
// repo.ErrAlreadySettled.
func (e *Engine) Settle(ctx context.Context, sig solana.Signature, player solana.PublicKey) (*Result, error) {
	payment, err := e.verifier.Verify(ctx, sig, player)
	if err != nil {
		return nil, err
	}

	// Reivindica a assinatura ANTES do sorteio: só uma liquidação por
	// assinatura prossegue, mesmo sob concorrência.
	if err := e.store.Claim(ctx, sig.String(), player.String(), int64(payment.Amount)); err != nil {
		if errors.Is(err, repo.ErrAlreadySettled) {
			return e.replayResult(ctx, sig)
		}
		return nil, err
	}

	win, err := e.rng.Flip()
	if err != nil {
		return nil, err
	}

	if !win {
		if err := e.store.Complete(ctx, sig.String(), OutcomeLose, ""); err != nil {
			return nil, err
		}
		e.publish(ctx, sig, player, OutcomeLose, "", int64(payment.Amount))
		metrics.SettlementsTotal.WithLabelValues(OutcomeLose).Inc()
		return &Result{Outcome: OutcomeLose}, nil
	}

	payoutSig, err := e.payout(ctx, player)
	if err != nil {
		// O sorteio vencedor já aconteceu: a reivindicação fica marcada como
		// falha de pagamento em vez de liberada, senão a mesma assinatura
		// poderia ser sorteada de novo. Reconciliação é operacional.
		if merr := e.store.MarkPayoutFailed(ctx, sig.String()); merr != nil {
			e.log.Error("mark payout failed", zap.String("signature", sig.String()), zap.Error(merr))
		}
		return nil, err
	}

	if err := e.store.Complete(ctx, sig.String(), OutcomeWin, payoutSig.String()); err != nil {
		// o prêmio já está na rede; registra a falha e devolve o resultado
		e.log.Error("record settlement", zap.String("signature", sig.String()), zap.Error(err))
	}
	e.publish(ctx, sig, player, OutcomeWin, payoutSig.String(), int64(payment.Amount))
	metrics.SettlementsTotal.WithLabelValues(OutcomeWin).Inc()
	metrics.PayoutLamportsTotal.Add(float64(2 * e.price))

	return &Result{Outcome: OutcomeWin, PayoutSignature: &payoutSig}, nil
}

// replayResult devolve o resultado original de uma assinatura já liquidada.
func (e *Engine) replayResult(ctx context.Context, sig solana.Signature) (*Result, error) {
	st, err := e.store.Get(ctx, sig.String())
	if err != nil {
		return nil, repo.ErrAlreadySettled
	}
	if st.Status != repo.StatusSettled {
		return nil, repo.ErrAlreadySettled
	}

	res := &Result{Outcome: st.Outcome.String}
	if st.PayoutSignature.Valid {
		ps, perr := solana.SignatureFromBase58(st.PayoutSignature.String)
		if perr != nil {
			return nil, repo.ErrAlreadySettled
		}
		res.PayoutSignature = &ps
	}
	return res, nil
}

// payout monta, assina e envia a transferência casa → jogador de 2× o preço.
// O envio acontece uma única vez; o engine não espera a finalidade do prêmio.
func (e *Engine) payout(ctx context.Context, player solana.PublicKey) (solana.Signature, error) {
	blockhash, _, err := e.ledger.LatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return solana.Signature{}, err
	}

	ix := system.NewTransferInstruction(2*e.price, e.house.Address(), player).Build()
	tx, err := solana.NewTransaction(
		[]solana.Instruction{ix},
		blockhash,
		solana.TransactionPayer(e.house.Address()),
	)
	if err != nil {
		return solana.Signature{}, err
	}

	if err := e.house.Sign(tx); err != nil {
		return solana.Signature{}, err
	}

	return e.ledger.Submit(ctx, tx)
}

func (e *Engine) publish(ctx context.Context, sig solana.Signature, player solana.PublicKey, outcome, payoutSig string, wager int64) {
	if e.publ == nil {
		return
	}
	err := e.publ.PublishWagerSettled(ctx, events.WagerSettled{
		Signature:       sig.String(),
		Player:          player.String(),
		Outcome:         outcome,
		PayoutSignature: payoutSig,
		WagerLamports:   wager,
	})
	if err != nil {
		e.log.Warn("publish wager_settled", zap.Error(err))
	}
}
