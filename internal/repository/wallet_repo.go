package repository

import (
	"context"
	"sort"

	"sinedi/internal/domain"
	"sinedi/internal/models"
	"sinedi/internal/store"
)

// WalletRepository reads the transaction log. Entries are only ever written
// inside ledger transactions through TxAppendTransaction.
type WalletRepository struct {
	st store.Store
}

func NewWalletRepository(st store.Store) *WalletRepository {
	return &WalletRepository{st: st}
}

var decodeTransaction = decodeInto(func(t *models.WalletTransaction, id string) { t.ID = id })

// ListByUserID returns the user's wallet history newest first.
func (r *WalletRepository) ListByUserID(ctx context.Context, userID string) ([]models.WalletTransaction, error) {
	docs, err := r.st.Query(ctx, domain.CollectionTransactions, store.Eq("userId", userID))
	if err != nil {
		return nil, err
	}
	list, err := decodeAll(docs, decodeTransaction)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(list, func(i, k int) bool { return list[i].CreatedAt > list[k].CreatedAt })
	return list, nil
}

// TxAppendTransaction stages a transaction-log record; id must come from NewID.
func TxAppendTransaction(tx store.Tx, id string, t *models.WalletTransaction) error {
	data, err := store.Encode(t)
	if err != nil {
		return err
	}
	delete(data, "id")
	return tx.Set(domain.CollectionTransactions, id, data)
}

func (r *WalletRepository) NewID() string {
	return r.st.NewID(domain.CollectionTransactions)
}
