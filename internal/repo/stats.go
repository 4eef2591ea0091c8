// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate queries used for
// conditional responses (ETag generation) and the state breakdown endpoint.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/notice-escalator/internal/domain"
)

// CasesStats returns the number of cases matching f and the greatest
// updated_at among them. When nothing matches, count is 0 and maxUpdatedAt
// is nil.
func CasesStats(ctx context.Context, db *gorm.DB, f CaseFilter) (count int64, maxUpdatedAt *time.Time, err error) {
	q := applyFilter(db.WithContext(ctx).Model(&domain.Case{}), f)

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	if err = q.Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}

// StateCounts returns the number of cases per lifecycle state. States with
// no cases are present with a zero count.
func StateCounts(ctx context.Context, db *gorm.DB) (map[domain.State]int64, error) {
	var rows []struct {
		State domain.State
		N     int64
	}
	err := db.WithContext(ctx).
		Model(&domain.Case{}).
		Select("state, COUNT(*) AS n").
		Group("state").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := map[domain.State]int64{
		domain.StatePending:    0,
		domain.StateWarned:     0,
		domain.StateFollowedUp: 0,
		domain.StateEscalated:  0,
		domain.StateResponded:  0,
	}
	for _, r := range rows {
		out[r.State] = r.N
	}
	return out, nil
}
