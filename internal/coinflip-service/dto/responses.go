package dto

type PrepareBetResponse struct {
	UnsignedTxBytes string `json:"unsignedTxBytes"` // base64
	BlockReference  string `json:"blockReference"`
	ExpiryHeight    uint64 `json:"expiryHeight"`
	House           string `json:"house"`
	Price           uint64 `json:"price"` // lamports
}

type SettleBetResponse struct {
	OK              bool    `json:"ok"`
	Outcome         string  `json:"outcome"`         // "win" | "lose"
	PayoutSignature *string `json:"payoutSignature"` // null quando lose
	House           string  `json:"house"`
	Price           uint64  `json:"price"`
}

type HealthResponse struct {
	OK             bool   `json:"ok"`
	Network        string `json:"network"`
	House          string `json:"house"`
	BlockReference string `json:"blockReference,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
