// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// LegalRequest model.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/notice-escalator/internal/domain"
)

// CreateLegalRequest inserts r, assigning an ID and CreatedAt when empty.
func CreateLegalRequest(ctx context.Context, db *gorm.DB, r *domain.LegalRequest) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(r).Error
}

// ListLegalRequests returns requests newest first, optionally restricted to a
// case.
func ListLegalRequests(ctx context.Context, db *gorm.DB, caseID string, offset, limit int) ([]domain.LegalRequest, error) {
	q := db.WithContext(ctx).Order("created_at desc")
	if caseID != "" {
		q = q.Where("case_id = ?", caseID)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []domain.LegalRequest
	err := q.Find(&out).Error
	return out, err
}
