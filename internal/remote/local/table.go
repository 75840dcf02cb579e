// Package local keeps the item table in a SQLite file. Writes made through a
// Table are announced to its own subscribers; there is no cross-process
// change feed.
package local

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/robby/homestock/internal/domain"
	"github.com/robby/homestock/internal/logging"
	"github.com/robby/homestock/internal/remote"
)

// ErrItemNotFound indicates a write addressed a row that does not exist.
var ErrItemNotFound = errors.New("item not found")

// Table implements remote.Table using GORM
type Table struct {
	db  *gorm.DB
	bc  *remote.Broadcaster
	now func() time.Time
}

// Verify interface compliance at compile time
var _ remote.Table = (*Table)(nil)

// gormLogger routes GORM output to the application logger
type gormLogger struct {
	level logger.LogLevel
}

func (l *gormLogger) LogMode(level logger.LogLevel) logger.Interface {
	return &gormLogger{level: level}
}

func (l *gormLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.level >= logger.Info {
		logging.Logger.Info(fmt.Sprintf(msg, data...))
	}
}

func (l *gormLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.level >= logger.Warn {
		logging.Logger.Warn(fmt.Sprintf(msg, data...))
	}
}

func (l *gormLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.level >= logger.Error {
		logging.Logger.Error(fmt.Sprintf(msg, data...))
	}
}

func (l *gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.level < logger.Info {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		logging.Logger.Error("gorm query error", "error", err, "duration", elapsed, "sql", sql, "rows", rows)
	case elapsed > 200*time.Millisecond:
		logging.Logger.Warn("slow query", "duration", elapsed, "sql", sql, "rows", rows)
	default:
		logging.Logger.Debug("gorm query", "duration", elapsed, "sql", sql, "rows", rows)
	}
}

func newGormLogger() logger.Interface {
	if os.Getenv("HOMESTOCK_DEBUG") == "1" {
		return (&gormLogger{}).LogMode(logger.Info)
	}
	return (&gormLogger{}).LogMode(logger.Silent)
}

// Open opens (creating if needed) the database at dbPath.
func Open(dbPath string) (*Table, error) {
	if strings.HasPrefix(dbPath, "~") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = filepath.Join(homeDir, dbPath[1:])
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
		Logger:  newGormLogger(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")
	db.Exec("PRAGMA synchronous=NORMAL")

	if err := db.AutoMigrate(&ItemModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate items schema: %w", err)
	}

	return &Table{
		db:  db,
		bc:  remote.NewBroadcaster(),
		now: func() time.Time { return time.Now().UTC() },
	}, nil
}

// Close closes the underlying database.
func (t *Table) Close() error {
	sqlDB, err := t.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// FetchAll reads every row.
func (t *Table) FetchAll(ctx context.Context) ([]domain.Item, error) {
	var models []ItemModel
	err := withRetry(func() error {
		return t.db.WithContext(ctx).Find(&models).Error
	}, 3)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch items: %w", err)
	}

	items := make([]domain.Item, len(models))
	for i, m := range models {
		items[i] = itemModelToDomain(m)
	}
	return items, nil
}

// Insert creates a row with a fresh UUID.
func (t *Table) Insert(ctx context.Context, item domain.NewItem) error {
	model := ItemModel{
		CreatedOrder: item.CreatedOrder,
		ID:           uuid.New().String(),
		Name:         item.Name,
		Pinned:       item.Pinned,
		State:        string(item.State),
		UpdatedAt:    t.now(),
	}
	err := withRetry(func() error {
		return t.db.WithContext(ctx).Create(&model).Error
	}, 3)
	if err != nil {
		return fmt.Errorf("failed to insert item: %w", err)
	}
	t.bc.Notify()
	return nil
}

// Update applies a partial update to one row.
func (t *Table) Update(ctx context.Context, id string, f remote.Fields) error {
	return t.updateWhere(ctx, []string{id}, f)
}

// UpdateMany applies the same partial update to every row in ids. Unknown ids
// are skipped.
func (t *Table) UpdateMany(ctx context.Context, ids []string, f remote.Fields) error {
	if len(ids) == 0 {
		return nil
	}
	return t.updateWhere(ctx, ids, f)
}

func (t *Table) updateWhere(ctx context.Context, ids []string, f remote.Fields) error {
	cols := columns(f)
	if len(cols) == 0 {
		return nil
	}

	var affected int64
	err := withRetry(func() error {
		result := t.db.WithContext(ctx).Model(&ItemModel{}).Where("id IN ?", ids).Updates(cols)
		affected = result.RowsAffected
		return result.Error
	}, 3)
	if err != nil {
		return fmt.Errorf("failed to update items: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("failed to update %s: %w", strings.Join(ids, ","), ErrItemNotFound)
	}
	t.bc.Notify()
	return nil
}

// Delete removes one row.
func (t *Table) Delete(ctx context.Context, id string) error {
	var affected int64
	err := withRetry(func() error {
		result := t.db.WithContext(ctx).Where("id = ?", id).Delete(&ItemModel{})
		affected = result.RowsAffected
		return result.Error
	}, 3)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("failed to delete %s: %w", id, ErrItemNotFound)
	}
	t.bc.Notify()
	return nil
}

// Subscribe returns a channel signalled after every write through t.
func (t *Table) Subscribe(ctx context.Context) (<-chan struct{}, error) {
	return t.bc.Subscribe(ctx), nil
}

// columns maps a partial update to GORM column values.
func columns(f remote.Fields) map[string]interface{} {
	cols := f.Columns()
	if !f.UpdatedAt.IsZero() {
		cols["updated_at"] = f.UpdatedAt.UTC()
	}
	return cols
}

// withRetry retries fn while SQLite reports the database busy or locked.
func withRetry(fn func() error, maxRetries int) error {
	var lastErr error
	for i := 0; i < maxRetries; i++ {
		err := fn()
		if err == nil {
			return nil
		}

		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && (sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked) {
			lastErr = err
			time.Sleep(time.Millisecond * time.Duration(50*(i+1)))
			continue
		}

		return err
	}
	return fmt.Errorf("operation failed after %d retries: %w", maxRetries, lastErr)
}
