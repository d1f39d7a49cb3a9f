package outbox

import (
	"errors"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// ErrTxRequired is returned when an outbox write is attempted outside a transaction.
var ErrTxRequired = errors.New("outbox: transaction required")

const maxLastErrorLen = 1024

// Repository reads and settles outbox rows. Every method takes the caller's
// transaction so row locks and state changes commit together.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Insert(tx *gorm.DB, event models.OutboxEvent) error {
	if tx == nil {
		return ErrTxRequired
	}
	return tx.Create(&event).Error
}

// FetchUnpublishedForPublish locks up to limit pending rows, oldest first.
// SKIP LOCKED lets several publishers drain the table without double sends.
func (r *Repository) FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error) {
	if tx == nil {
		return nil, ErrTxRequired
	}
	var rows []models.OutboxEvent
	err := tx.Scopes(publishable(maxAttempts)).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Order("created_at, id").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func publishable(maxAttempts int) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("published_at IS NULL AND attempt_count < ?", maxAttempts)
	}
}

func (r *Repository) MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error {
	return r.update(tx, id, map[string]any{"published_at": time.Now().UTC()})
}

// MarkFailedTx records a retryable failure and burns one attempt.
func (r *Repository) MarkFailedTx(tx *gorm.DB, id uuid.UUID, cause error) error {
	return r.update(tx, id, map[string]any{
		"last_error":    clip(cause.Error()),
		"attempt_count": gorm.Expr("attempt_count + 1"),
	})
}

// MarkTerminalTx sets attempt_count to the ceiling so the row is never fetched again.
func (r *Repository) MarkTerminalTx(tx *gorm.DB, id uuid.UUID, cause error, terminalAttempts int) error {
	return r.update(tx, id, map[string]any{
		"last_error":    clip(cause.Error()),
		"attempt_count": terminalAttempts,
	})
}

func (r *Repository) update(tx *gorm.DB, id uuid.UUID, fields map[string]any) error {
	if tx == nil {
		return ErrTxRequired
	}
	return tx.Model(&models.OutboxEvent{}).Where("id = ?", id).Updates(fields).Error
}

// clip bounds stored error text without splitting a multi-byte rune.
func clip(message string) string {
	if len(message) <= maxLastErrorLen {
		return message
	}
	cut := maxLastErrorLen
	for cut > 0 && !utf8.RuneStart(message[cut]) {
		cut--
	}
	return message[:cut]
}
