package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// ParentRepository stores parent/student links.
type ParentRepository struct {
	db *sqlx.DB
}

// NewParentRepository constructs the repository.
func NewParentRepository(db *sqlx.DB) *ParentRepository {
	return &ParentRepository{db: db}
}

// Link connects a parent to a student. Linking twice is a no-op.
func (r *ParentRepository) Link(ctx context.Context, studentTgID, parentTgID int64) error {
	const query = `INSERT INTO parents (id, student_tg_id, parent_tg_id) VALUES ($1, $2, $3) ON CONFLICT (student_tg_id, parent_tg_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, uuid.NewString(), studentTgID, parentTgID); err != nil {
		return fmt.Errorf("link parent: %w", err)
	}
	return nil
}

// ParentsOf returns every parent linked to the student.
func (r *ParentRepository) ParentsOf(ctx context.Context, studentTgID int64) ([]int64, error) {
	const query = `SELECT parent_tg_id FROM parents WHERE student_tg_id = $1 ORDER BY parent_tg_id`
	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, query, studentTgID); err != nil {
		return nil, fmt.Errorf("list parents of student: %w", err)
	}
	return ids, nil
}

// ChildrenOf returns every student linked to the parent.
func (r *ParentRepository) ChildrenOf(ctx context.Context, parentTgID int64) ([]int64, error) {
	const query = `SELECT DISTINCT student_tg_id FROM parents WHERE parent_tg_id = $1 ORDER BY student_tg_id`
	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, query, parentTgID); err != nil {
		return nil, fmt.Errorf("list children of parent: %w", err)
	}
	return ids, nil
}

// ListParents returns every parent that has at least one link.
func (r *ParentRepository) ListParents(ctx context.Context) ([]int64, error) {
	const query = `SELECT DISTINCT parent_tg_id FROM parents ORDER BY parent_tg_id`
	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, query); err != nil {
		return nil, fmt.Errorf("list parents: %w", err)
	}
	return ids, nil
}
