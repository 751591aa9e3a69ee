package topics

const (
	// Liquidações
	WagerSettled = "wager_settled"

	// DLQs
	WagerSettledDLQ = "wager_settled_dlq"
)
