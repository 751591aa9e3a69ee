package events

// Evento emitido pelo coinflip-service após liquidar uma aposta.
type WagerSettled struct {
	Signature       string `json:"signature"`        // assinatura do pagamento do jogador
	Player          string `json:"player"`
	Outcome         string `json:"outcome"`          // "win" | "lose"
	PayoutSignature string `json:"payout_signature,omitempty"`
	WagerLamports   int64  `json:"wager_lamports"`
	TsUnixMs        int64  `json:"ts_unix_ms"`
}
