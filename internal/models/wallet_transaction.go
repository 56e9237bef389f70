package models

// WalletTransaction records credits/debits for wallet history (tutor income, withdrawals).
type WalletTransaction struct {
	ID        string `json:"id" firestore:"-"`
	UserID    string `json:"userId" firestore:"userId"`
	Amount    int64  `json:"amount" firestore:"amount"` // positive = credit, negative = debit
	Type      string `json:"type" firestore:"type"`     // income, withdraw, adjustment
	Title     string `json:"title,omitempty" firestore:"title,omitempty"`
	Reference string `json:"reference" firestore:"reference"` // job id
	CreatedAt string `json:"createdAt" firestore:"createdAt"`
}
