package dto

type PrepareBetRequest struct {
	PlayerAddress string `json:"playerAddress"`
}

type SettleBetRequest struct {
	Signature     string `json:"signature"` // assinatura do pagamento do jogador
	PlayerAddress string `json:"playerAddress"`
}
