package models

// Deduction records how many points a spend drew from one transaction in the log.
type Deduction struct {
	TransactionID string `json:"transaction_id"` // log entry that was walked
	Payer         string `json:"payer"`          // payer charged for the deduction
	Points        int64  `json:"points"`         // amount taken, as submitted sign
}
