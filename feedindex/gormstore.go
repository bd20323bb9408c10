package feedindex

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gitsocial/gitsocial/timeline"
)

// Gormstore is a gorm-backed implementation of the feed index Store.
type Gormstore struct {
	db *gorm.DB
}

var _ Store = (*Gormstore)(nil)

func NewGormstore(db *gorm.DB) (*Gormstore, error) {
	if err := db.AutoMigrate(&Entry{}, &RepoState{}); err != nil {
		return nil, fmt.Errorf("migrating feed index schema: %w", err)
	}
	return &Gormstore{db: db}, nil
}

// PutEntries swaps the repository's rows in one transaction. A wholesale
// replace, not an upsert: synthesized entries share their commit's hash, so
// no per-row conflict key exists.
func (s *Gormstore) PutEntries(ctx context.Context, repository string, entries []timeline.Entry) error {
	rows := make([]Entry, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, fromTimeline(repository, e))
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("repository = ?", repository).Delete(&Entry{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(rows, 500).Error
	})
}

func (s *Gormstore) Timeline(ctx context.Context, q Query) ([]Entry, error) {
	tx := s.db.WithContext(ctx).Model(&Entry{}).Order("time DESC, id DESC")
	if q.Repository != "" {
		tx = tx.Where("repository = ?", q.Repository)
	}
	if len(q.Types) > 0 {
		types := make([]string, 0, len(q.Types))
		for _, t := range q.Types {
			types = append(types, string(t))
		}
		tx = tx.Where("type IN ?", types)
	}
	if q.Since != nil {
		tx = tx.Where("time >= ?", *q.Since)
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	var out []Entry
	if err := tx.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Gormstore) MarkRefreshed(ctx context.Context, repository string, count int, refreshErr error) error {
	state := RepoState{
		Repository:  repository,
		LastRefresh: time.Now().UTC(),
		Entries:     count,
	}
	if refreshErr != nil {
		state.LastError = refreshErr.Error()
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "repository"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_refresh", "last_error", "entries", "updated_at"}),
	}).Create(&state).Error
}

func (s *Gormstore) RepoStates(ctx context.Context) ([]RepoState, error) {
	var out []RepoState
	if err := s.db.WithContext(ctx).Order("repository").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
