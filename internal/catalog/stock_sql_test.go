package catalog

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

func openMockPostgres(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	conn, err := db.Open(postgres.New(postgres.Config{Conn: sqlDB}))
	if err != nil {
		t.Fatalf("open gorm: %v", err)
	}
	return conn, mock
}

func TestSellIssuesConditionalUpdate(t *testing.T) {
	conn, mock := openMockPostgres(t)
	id := uuid.New()

	mock.ExpectExec(`UPDATE "products" SET .*"quantity"=quantity - \$\d+.*"sold"=sold \+ \$\d+.* WHERE id = \$\d+ AND quantity >= \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := NewRepository(conn).ApplyStockDeltas(context.Background(), conn, []StockDelta{{ProductID: id, Delta: -2}}); err != nil {
		t.Fatalf("apply deltas: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSellReportsShortageWhenNoRowMatches(t *testing.T) {
	conn, mock := openMockPostgres(t)
	id := uuid.New()

	mock.ExpectExec(`UPDATE "products" SET .* WHERE id = \$\d+ AND quantity >= \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT "id","title","quantity" FROM "products" WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "quantity"}).AddRow(id, "Lamp", 1))

	err := NewRepository(conn).ApplyStockDeltas(context.Background(), conn, []StockDelta{{ProductID: id, Delta: -5}})
	if !pkgerrors.HasCode(err, pkgerrors.CodeInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	details, ok := pkgerrors.As(err).Details().(ShortageDetails)
	if !ok || details.Available != 1 || details.Requested != 5 || details.Title != "Lamp" {
		t.Fatalf("unexpected details %#v", pkgerrors.As(err).Details())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
