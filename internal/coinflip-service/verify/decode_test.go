package verify

import (
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func transferData(opcode uint32, lamports uint64) []byte {
	data := make([]byte, 12)
	binary.LittleEndian.PutUint32(data[:4], opcode)
	binary.LittleEndian.PutUint64(data[4:12], lamports)
	return data
}

func testMessage(keys ...solana.PublicKey) *solana.Message {
	return &solana.Message{AccountKeys: keys}
}

func TestDecodeTransfer(t *testing.T) {
	src := solana.MustPublicKeyFromBase58("11111111111111111111111111111112")
	dst := solana.MustPublicKeyFromBase58("11111111111111111111111111111113")
	msg := testMessage(src, dst)

	ci := solana.CompiledInstruction{
		Accounts: []uint16{0, 1},
		Data:     solana.Base58(transferData(2, 20_000_000)),
	}

	tr, err := DecodeTransfer(msg, ci)
	require.NoError(t, err)
	assert.True(t, tr.Source.Equals(src))
	assert.True(t, tr.Dest.Equals(dst))
	assert.Equal(t, uint64(20_000_000), tr.Lamports)
}

func TestDecodeTransferRejectsMalformed(t *testing.T) {
	src := solana.MustPublicKeyFromBase58("11111111111111111111111111111112")
	dst := solana.MustPublicKeyFromBase58("11111111111111111111111111111113")
	msg := testMessage(src, dst)

	cases := map[string]solana.CompiledInstruction{
		"short data": {
			Accounts: []uint16{0, 1},
			Data:     solana.Base58{1, 2, 3},
		},
		"wrong opcode": {
			Accounts: []uint16{0, 1},
			Data:     solana.Base58(transferData(3, 20_000_000)),
		},
		"missing accounts": {
			Accounts: []uint16{0},
			Data:     solana.Base58(transferData(2, 20_000_000)),
		},
		"account index out of range": {
			Accounts: []uint16{0, 9},
			Data:     solana.Base58(transferData(2, 20_000_000)),
		},
	}
	for name, ci := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeTransfer(msg, ci)
			assert.Error(t, err)
		})
	}
}
