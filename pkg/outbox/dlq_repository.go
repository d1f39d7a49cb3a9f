package outbox

import (
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// DLQRepository stores events the publisher gave up on.
type DLQRepository struct{}

func NewDLQRepository() *DLQRepository {
	return &DLQRepository{}
}

// InsertTx must share the transaction that parks the source row.
func (DLQRepository) InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error {
	if tx == nil {
		return ErrTxRequired
	}
	if entry.ErrorMessage != nil {
		clipped := clip(*entry.ErrorMessage)
		entry.ErrorMessage = &clipped
	}
	return tx.Create(&entry).Error
}
