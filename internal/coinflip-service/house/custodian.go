package house

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
)

var ErrBadKey = errors.New("invalid house secret key")

// Custodian guarda a chave de assinatura da casa, carregada uma única vez
// na subida do processo. A chave nunca sai do pacote.
type Custodian struct {
	key solana.PrivateKey
}

// Load aceita duas codificações para a chave secreta: sequência numérica
// entre colchetes ("[12,34,...]", os 64 bytes crus) ou string base58.
// Qualquer outra coisa é erro de configuração e derruba a subida.
func Load(raw string) (*Custodian, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty", ErrBadKey)
	}

	if strings.HasPrefix(raw, "[") {
		var nums []int
		if err := json.Unmarshal([]byte(raw), &nums); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadKey, err)
		}
		if len(nums) != 64 {
			return nil, fmt.Errorf("%w: want 64 bytes, got %d", ErrBadKey, len(nums))
		}
		b := make([]byte, len(nums))
		for i, n := range nums {
			if n < 0 || n > 255 {
				return nil, fmt.Errorf("%w: byte %d out of range", ErrBadKey, i)
			}
			b[i] = byte(n)
		}
		return &Custodian{key: solana.PrivateKey(b)}, nil
	}

	key, err := solana.PrivateKeyFromBase58(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadKey, err)
	}
	return &Custodian{key: key}, nil
}

// Address retorna o endereço público da casa.
func (c *Custodian) Address() solana.PublicKey { return c.key.PublicKey() }

// Sign assina a transação com a chave da casa.
func (c *Custodian) Sign(tx *solana.Transaction) error {
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(c.key.PublicKey()) {
			return &c.key
		}
		return nil
	})
	return err
}
