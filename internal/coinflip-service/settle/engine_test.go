package settle

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/coinflip-platform-poc/internal/coinflip-service/house"
	"github.com/radieske/coinflip-platform-poc/internal/coinflip-service/ledger"
	"github.com/radieske/coinflip-platform-poc/internal/coinflip-service/repo"
	"github.com/radieske/coinflip-platform-poc/internal/coinflip-service/verify"
	"github.com/radieske/coinflip-platform-poc/pkg/contracts/events"
)

const testPrice = 20_000_000

type fakeLedger struct {
	tx        *solana.Transaction
	txErr     error
	submitted []*solana.Transaction
	submitSig solana.Signature
	submitErr error
}

func (f *fakeLedger) LatestBlockhash(ctx context.Context, c rpc.CommitmentType) (solana.Hash, uint64, error) {
	var h solana.Hash
	h[0] = 0x01
	return h, 100, nil
}

func (f *fakeLedger) GetTransaction(ctx context.Context, sig solana.Signature, c rpc.CommitmentType) (*solana.Transaction, uint64, error) {
	if f.txErr != nil {
		return nil, 0, f.txErr
	}
	return f.tx, 42, nil
}

func (f *fakeLedger) Submit(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	if f.submitErr != nil {
		return solana.Signature{}, f.submitErr
	}
	f.submitted = append(f.submitted, tx)
	return f.submitSig, nil
}

type memStore struct {
	mu   sync.Mutex
	rows map[string]*repo.Settlement
}

func newMemStore() *memStore { return &memStore{rows: map[string]*repo.Settlement{}} }

func (m *memStore) Claim(ctx context.Context, signature, player string, wagerLamports int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[signature]; ok {
		return repo.ErrAlreadySettled
	}
	m.rows[signature] = &repo.Settlement{
		Signature:     signature,
		Player:        player,
		WagerLamports: wagerLamports,
		Status:        repo.StatusPending,
	}
	return nil
}

func (m *memStore) Get(ctx context.Context, signature string) (*repo.Settlement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[signature]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memStore) Complete(ctx context.Context, signature, outcome, payoutSignature string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.rows[signature]
	s.Status = repo.StatusSettled
	s.Outcome = sql.NullString{String: outcome, Valid: true}
	if payoutSignature != "" {
		s.PayoutSignature = sql.NullString{String: payoutSignature, Valid: true}
	}
	return nil
}

func (m *memStore) MarkPayoutFailed(ctx context.Context, signature string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.rows[signature]
	s.Status = repo.StatusPayoutFailed
	s.Outcome = sql.NullString{String: OutcomeWin, Valid: true}
	return nil
}

type fixedRand struct {
	seq []bool
	i   int
}

func (r *fixedRand) Flip() (bool, error) {
	v := r.seq[r.i%len(r.seq)]
	r.i++
	return v, nil
}

type memPublisher struct {
	events []events.WagerSettled
}

func (p *memPublisher) PublishWagerSettled(ctx context.Context, e events.WagerSettled) error {
	p.events = append(p.events, e)
	return nil
}

type fixture struct {
	engine    *Engine
	ledger    *fakeLedger
	store     *memStore
	publ      *memPublisher
	custodian *house.Custodian
	player    solana.PublicKey
	sig       solana.Signature
}

func newFixture(t *testing.T, rng Rand, wagerLamports uint64) *fixture {
	t.Helper()

	houseKey, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	custodian, err := house.Load(houseKey.String())
	require.NoError(t, err)

	playerKey, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	player := playerKey.PublicKey()

	ix := system.NewTransferInstruction(wagerLamports, player, custodian.Address()).Build()
	paymentTx, err := solana.NewTransaction([]solana.Instruction{ix}, solana.Hash{}, solana.TransactionPayer(player))
	require.NoError(t, err)

	var payoutSig solana.Signature
	payoutSig[0] = 0x99
	lc := &fakeLedger{tx: paymentTx, submitSig: payoutSig}

	var sig solana.Signature
	sig[0] = 0x42

	store := newMemStore()
	publ := &memPublisher{}
	verifier := verify.NewVerifier(zap.NewNop(), lc, nil, custodian.Address(), testPrice)
	engine := NewEngine(zap.NewNop(), verifier, lc, custodian, store, publ, rng, testPrice)

	return &fixture{
		engine:    engine,
		ledger:    lc,
		store:     store,
		publ:      publ,
		custodian: custodian,
		player:    player,
		sig:       sig,
	}
}

func TestSettleLose(t *testing.T) {
	f := newFixture(t, &fixedRand{seq: []bool{false}}, testPrice)

	res, err := f.engine.Settle(context.Background(), f.sig, f.player)
	require.NoError(t, err)

	assert.Equal(t, OutcomeLose, res.Outcome)
	assert.Nil(t, res.PayoutSignature)
	// derrota nunca constrói instrução de prêmio
	assert.Empty(t, f.ledger.submitted)

	st, err := f.store.Get(context.Background(), f.sig.String())
	require.NoError(t, err)
	assert.Equal(t, repo.StatusSettled, st.Status)
	assert.Equal(t, OutcomeLose, st.Outcome.String)

	require.Len(t, f.publ.events, 1)
	assert.Equal(t, OutcomeLose, f.publ.events[0].Outcome)
	assert.Empty(t, f.publ.events[0].PayoutSignature)
}

func TestSettleWinPaysDoubleTheWager(t *testing.T) {
	f := newFixture(t, &fixedRand{seq: []bool{true}}, testPrice)

	res, err := f.engine.Settle(context.Background(), f.sig, f.player)
	require.NoError(t, err)

	assert.Equal(t, OutcomeWin, res.Outcome)
	require.NotNil(t, res.PayoutSignature)
	assert.Equal(t, f.ledger.submitSig, *res.PayoutSignature)

	// transação de prêmio: casa → jogador, exatamente 2× o preço, assinada
	require.Len(t, f.ledger.submitted, 1)
	payout := f.ledger.submitted[0]
	require.NotEmpty(t, payout.Message.AccountKeys)
	assert.True(t, payout.Message.AccountKeys[0].Equals(f.custodian.Address()))
	require.Len(t, payout.Message.Instructions, 1)

	tr, err := verify.DecodeTransfer(&payout.Message, payout.Message.Instructions[0])
	require.NoError(t, err)
	assert.True(t, tr.Source.Equals(f.custodian.Address()))
	assert.True(t, tr.Dest.Equals(f.player))
	assert.Equal(t, uint64(2*testPrice), tr.Lamports)
	assert.NoError(t, payout.VerifySignatures())

	st, err := f.store.Get(context.Background(), f.sig.String())
	require.NoError(t, err)
	assert.Equal(t, repo.StatusSettled, st.Status)
	assert.Equal(t, f.ledger.submitSig.String(), st.PayoutSignature.String)

	require.Len(t, f.publ.events, 1)
	assert.Equal(t, OutcomeWin, f.publ.events[0].Outcome)
}

func TestSettlePropagatesVerificationFailure(t *testing.T) {
	// pagamento com um lamport a menos: Mismatch, nada é reivindicado
	f := newFixture(t, &fixedRand{seq: []bool{true}}, testPrice-1)

	_, err := f.engine.Settle(context.Background(), f.sig, f.player)
	assert.ErrorIs(t, err, verify.ErrMismatch)

	_, err = f.store.Get(context.Background(), f.sig.String())
	assert.ErrorIs(t, err, repo.ErrNotFound)
	assert.Empty(t, f.ledger.submitted)
}

func TestSettleNotFoundPropagates(t *testing.T) {
	f := newFixture(t, &fixedRand{seq: []bool{true}}, testPrice)
	f.ledger.txErr = ledger.ErrNotFound

	_, err := f.engine.Settle(context.Background(), f.sig, f.player)
	assert.ErrorIs(t, err, verify.ErrNotFound)
}

func TestSettleReplayReturnsOriginalResult(t *testing.T) {
	// primeira chamada vence; a segunda sortearia derrota, mas o replay
	// devolve o resultado original sem novo sorteio nem novo prêmio
	f := newFixture(t, &fixedRand{seq: []bool{true, false}}, testPrice)

	first, err := f.engine.Settle(context.Background(), f.sig, f.player)
	require.NoError(t, err)
	require.Equal(t, OutcomeWin, first.Outcome)

	second, err := f.engine.Settle(context.Background(), f.sig, f.player)
	require.NoError(t, err)
	assert.Equal(t, OutcomeWin, second.Outcome)
	require.NotNil(t, second.PayoutSignature)
	assert.Equal(t, *first.PayoutSignature, *second.PayoutSignature)

	assert.Len(t, f.ledger.submitted, 1)
}

func TestSettleConcurrentClaimRejected(t *testing.T) {
	f := newFixture(t, &fixedRand{seq: []bool{true}}, testPrice)

	// outra liquidação já reivindicou a assinatura e ainda não terminou
	require.NoError(t, f.store.Claim(context.Background(), f.sig.String(), f.player.String(), testPrice))

	_, err := f.engine.Settle(context.Background(), f.sig, f.player)
	assert.ErrorIs(t, err, repo.ErrAlreadySettled)
	assert.Empty(t, f.ledger.submitted)
}

func TestSettlePayoutFailureKeepsClaim(t *testing.T) {
	f := newFixture(t, &fixedRand{seq: []bool{true}}, testPrice)
	f.ledger.submitErr = fmt.Errorf("%w: submit refused", ledger.ErrUnavailable)

	_, err := f.engine.Settle(context.Background(), f.sig, f.player)
	assert.ErrorIs(t, err, ledger.ErrUnavailable)

	// a reivindicação não é liberada: re-sorteio está proibido
	st, gerr := f.store.Get(context.Background(), f.sig.String())
	require.NoError(t, gerr)
	assert.Equal(t, repo.StatusPayoutFailed, st.Status)

	_, err = f.engine.Settle(context.Background(), f.sig, f.player)
	assert.ErrorIs(t, err, repo.ErrAlreadySettled)
}
