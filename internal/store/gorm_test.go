package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/adboardhq/adboard/internal/db/models"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	database, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := database.AutoMigrate(&models.Integration{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return database
}

func TestGormRoundTrip(t *testing.T) {
	s := NewGorm(newTestDB(t))
	ctx := context.Background()
	rec := testRecord("int-1", "user-1", time.Now().Truncate(time.Second).UTC())

	if err := s.Put(ctx, rec); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := s.Get(ctx, "int-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatalf("expected record, got nil")
	}
	if got.ID != rec.ID || got.AccessToken != rec.AccessToken || got.RefreshToken != rec.RefreshToken ||
		got.Provider != rec.Provider || got.Email != rec.Email || !got.ExpiresAt.Equal(rec.ExpiresAt) {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, rec)
	}
}

func TestGormPutOverwrites(t *testing.T) {
	s := NewGorm(newTestDB(t))
	ctx := context.Background()
	rec := testRecord("int-1", "user-1", time.Now())
	if err := s.Put(ctx, rec); err != nil {
		t.Fatalf("put: %v", err)
	}

	rec.AccessToken = "tok-rotated"
	rec.AdAccountID = "act_99"
	if err := s.Put(ctx, rec); err != nil {
		t.Fatalf("second put: %v", err)
	}

	got, err := s.Get(ctx, "int-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.AccessToken != "tok-rotated" || got.AdAccountID != "act_99" {
		t.Fatalf("overwrite not applied: %+v", got)
	}
}

func TestGormGetAbsent(t *testing.T) {
	s := NewGorm(newTestDB(t))
	got, err := s.Get(context.Background(), "missing")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for absent id, got %+v", got)
	}
}

func TestGormDeleteIdempotent(t *testing.T) {
	s := NewGorm(newTestDB(t))
	ctx := context.Background()
	if err := s.Put(ctx, testRecord("int-1", "user-1", time.Now())); err != nil {
		t.Fatalf("put: %v", err)
	}

	removed, err := s.Delete(ctx, "int-1")
	if err != nil || !removed {
		t.Fatalf("first delete: removed=%v err=%v, want true,nil", removed, err)
	}
	removed, err = s.Delete(ctx, "int-1")
	if err != nil || removed {
		t.Fatalf("second delete: removed=%v err=%v, want false,nil", removed, err)
	}
}

func TestGormListByUserRedactsAndOrders(t *testing.T) {
	s := NewGorm(newTestDB(t))
	ctx := context.Background()
	base := time.Now().Truncate(time.Second).UTC()
	if err := s.Put(ctx, testRecord("old", "user-1", base.Add(-time.Hour))); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Put(ctx, testRecord("new", "user-1", base)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Put(ctx, testRecord("other", "user-2", base)); err != nil {
		t.Fatalf("put: %v", err)
	}

	list, err := s.ListByUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != "new" || list[1].ID != "old" {
		t.Fatalf("expected newest-first list for user-1, got %+v", list)
	}

	data, err := json.Marshal(list)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(data), "tok-secret") || strings.Contains(string(data), "ref-secret") {
		t.Fatalf("list view leaked credentials: %s", data)
	}
}
