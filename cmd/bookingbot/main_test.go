package main

import (
	"context"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-booking-bot/internal/domain"
	"github.com/tbourn/go-booking-bot/internal/repo"
)

func TestPurgeProcessedEvents_DropsExpiredUntilCancelled(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:purge_loop?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	now := time.Now().UTC()
	seed := []domain.ProcessedEvent{
		{ID: "old", Source: domain.SourceTelegram, Key: "1", ChannelID: 7, CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour)},
		{ID: "live", Source: domain.SourceHTTP, Key: "k", ChannelID: 7, CreatedAt: now, ExpiresAt: now.Add(time.Hour)},
	}
	if err := db.Create(&seed).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		purgeProcessedEvents(ctx, db, 5*time.Millisecond)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for {
		var n int64
		if err := db.Model(&domain.ProcessedEvent{}).Where("id = ?", "old").Count(&n).Error; err != nil {
			t.Fatalf("count: %v", err)
		}
		if n == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expired event was not purged")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("purge loop did not stop on cancel")
	}

	var live int64
	db.Model(&domain.ProcessedEvent{}).Where("id = ?", "live").Count(&live)
	if live != 1 {
		t.Fatalf("live event purged")
	}
}
