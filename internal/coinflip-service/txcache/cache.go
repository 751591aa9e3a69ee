package txcache

import (
	"context"
	"encoding/json"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Cache guarda transações já buscadas no Redis com TTL curto, evitando
// fetch RPC duplicado dentro de uma tentativa de liquidação. Qualquer erro
// de cache degrada para a busca direta — nunca derruba a verificação.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
	log *zap.Logger
}

func New(rdb *redis.Client, ttl time.Duration, log *zap.Logger) *Cache {
	return &Cache{rdb: rdb, ttl: ttl, log: log}
}

// key gera a chave Redis de uma transação confirmada
func key(sig solana.Signature) string { return "tx:confirmed:" + sig.String() }

type entry struct {
	Raw  []byte `json:"raw"` // transação serializada
	Slot uint64 `json:"slot"`
}

func (c *Cache) Get(ctx context.Context, sig solana.Signature) (*solana.Transaction, uint64, bool) {
	b, err := c.rdb.Get(ctx, key(sig)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Debug("tx cache get", zap.Error(err))
		}
		return nil, 0, false
	}
	var e entry
	if err := json.Unmarshal(b, &e); err != nil {
		return nil, 0, false
	}
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(e.Raw))
	if err != nil {
		return nil, 0, false
	}
	return tx, e.Slot, true
}

func (c *Cache) Set(ctx context.Context, sig solana.Signature, tx *solana.Transaction, slot uint64) {
	raw, err := tx.MarshalBinary()
	if err != nil {
		return
	}
	b, err := json.Marshal(entry{Raw: raw, Slot: slot})
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key(sig), b, c.ttl).Err(); err != nil {
		c.log.Debug("tx cache set", zap.Error(err))
	}
}
