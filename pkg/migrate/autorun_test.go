package migrate

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

func TestMaybeRunDevSkipsOutsideDev(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: config.AppEnvProd}, FeatureFlags: config.FeatureFlagsConfig{AutoMigrate: true}}
	if err := MaybeRunDev(context.Background(), cfg, nil, nil); err != nil {
		t.Fatalf("expected no-op, got %v", err)
	}
}

func TestMaybeRunDevSQLiteAutoMigrates(t *testing.T) {
	conn, err := db.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	cfg := &config.Config{
		App:          config.AppConfig{Env: config.AppEnvDev},
		FeatureFlags: config.FeatureFlagsConfig{AutoMigrate: true, UseSQLite: true},
	}
	logg := logger.New(logger.Options{ServiceName: "migrate-test", Output: io.Discard})
	if err := MaybeRunDev(context.Background(), cfg, logg, db.Wrap(conn)); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	for _, table := range []string{"users", "products", "carts", "cart_items", "coupons", "orders", "outbox_events", "outbox_dlq"} {
		if !conn.Migrator().HasTable(table) {
			t.Fatalf("expected table %s", table)
		}
	}
}
