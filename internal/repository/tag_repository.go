package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"book-store/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrTagNotFound      = errors.New("tag not found")
	ErrTagAlreadyExists = errors.New("tag with this name already exists")
)

type TagRepository interface {
	Create(ctx context.Context, tag *domain.Tag) error
	Delete(ctx context.Context, name string) error
	FindByName(ctx context.Context, name string) (*domain.Tag, error)
	List(ctx context.Context, productID *uuid.UUID, page, pageSize int) ([]*domain.Tag, int, error)
}

type tagRepository struct {
	db DBTX
}

func NewTagRepository(db DBTX) TagRepository {
	return &tagRepository{db: db}
}

func (r *tagRepository) Create(ctx context.Context, tag *domain.Tag) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO tags (name, product_id) VALUES ($1, $2)`, tag.Name, tag.ProductID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrTagAlreadyExists
		}
		if isForeignKeyViolation(err) {
			return ErrProductNotFound
		}
		return fmt.Errorf("failed to create tag: %w", err)
	}
	return nil
}

func (r *tagRepository) Delete(ctx context.Context, name string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tags WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("failed to delete tag: %w", err)
	}
	return checkAffected(result, ErrTagNotFound)
}

func (r *tagRepository) FindByName(ctx context.Context, name string) (*domain.Tag, error) {
	tag := &domain.Tag{}
	err := r.db.QueryRowContext(ctx, `SELECT name, product_id FROM tags WHERE name = $1`, name).Scan(&tag.Name, &tag.ProductID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTagNotFound
		}
		return nil, fmt.Errorf("failed to find tag: %w", err)
	}
	return tag, nil
}

func (r *tagRepository) List(ctx context.Context, productID *uuid.UUID, page, pageSize int) ([]*domain.Tag, int, error) {
	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tags WHERE $1::uuid IS NULL OR product_id = $1`,
		nullableUUID(productID),
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count tags: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT name, product_id
		FROM tags
		WHERE $1::uuid IS NULL OR product_id = $1
		ORDER BY name
		LIMIT $2 OFFSET $3
	`, nullableUUID(productID), pageSize, offset(page, pageSize))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tags: %w", err)
	}
	defer rows.Close()

	tags := []*domain.Tag{}
	for rows.Next() {
		tag := &domain.Tag{}
		if err := rows.Scan(&tag.Name, &tag.ProductID); err != nil {
			return nil, 0, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, tag)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating tags: %w", err)
	}

	return tags, total, nil
}
