package settle

import "crypto/rand"

// Rand abstrai o sorteio do resultado, permitindo sequências determinísticas
// nos testes no lugar do gerador do sistema.
type Rand interface {
	Flip() (bool, error)
}

// CryptoRand sorteia um booleano uniforme (probabilidade exata 1/2) a partir
// de crypto/rand.
type CryptoRand struct{}

func (CryptoRand) Flip() (bool, error) {
	var b [1]byte
	if _, err := rand.Read(b[:]); err != nil {
		return false, err
	}
	return b[0]&1 == 1, nil
}
