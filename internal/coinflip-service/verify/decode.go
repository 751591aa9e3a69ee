package verify

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// opcode da instrução Transfer no system program
const transferOpCode = 2

// Transfer é o resultado tipado da decodificação de uma instrução compilada
// do system program: origem, destino e valor em lamports.
type Transfer struct {
	Source   solana.PublicKey
	Dest     solana.PublicKey
	Lamports uint64
}

// DecodeTransfer decodifica o layout de uma transferência nativa: opcode
// u32 little-endian, duas referências de conta (origem, destino) e valor
// u64 little-endian. Dados malformados retornam erro, nunca pânico — o
// verificador trata cada falha como diagnóstico e segue o scan.
func DecodeTransfer(msg *solana.Message, ci solana.CompiledInstruction) (*Transfer, error) {
	data := []byte(ci.Data)
	if len(data) < 12 {
		return nil, fmt.Errorf("instruction data too short: %d bytes", len(data))
	}
	if op := binary.LittleEndian.Uint32(data[:4]); op != transferOpCode {
		return nil, fmt.Errorf("not a transfer: opcode %d", op)
	}
	if len(ci.Accounts) < 2 {
		return nil, fmt.Errorf("transfer needs 2 accounts, got %d", len(ci.Accounts))
	}
	src, dst := int(ci.Accounts[0]), int(ci.Accounts[1])
	if src >= len(msg.AccountKeys) || dst >= len(msg.AccountKeys) {
		return nil, fmt.Errorf("account index out of range")
	}
	return &Transfer{
		Source:   msg.AccountKeys[src],
		Dest:     msg.AccountKeys[dst],
		Lamports: binary.LittleEndian.Uint64(data[4:12]),
	}, nil
}
