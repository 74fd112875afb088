package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/getsuraikai/kyudo-tournament/models"
)

var ErrArcherNotFound = errors.New("archer not found")

type ListArchersFilter struct {
	Name     string
	Position *models.ArcherPosition
	Limit    int
	Offset   int
}

type ArcherRepository interface {
	Create(ctx context.Context, archer *models.Archer) error
	GetByID(ctx context.Context, id int) (*models.Archer, error)
	List(ctx context.Context, filter ListArchersFilter) ([]*models.Archer, error)
	Count(ctx context.Context, filter ListArchersFilter) (int, error)
	Update(ctx context.Context, archer *models.Archer) error
	UpdateAccuracy(ctx context.Context, exec SQLExecutor, id int, accuracy float64) error
	UpdatePhotoKey(ctx context.Context, id int, photoKey *string) error
	Delete(ctx context.Context, id int) error
}

type postgresArcherRepository struct {
	db *sql.DB
}

func NewPostgresArcherRepository(db *sql.DB) ArcherRepository {
	return &postgresArcherRepository{db: db}
}

func (r *postgresArcherRepository) Create(ctx context.Context, a *models.Archer) error {
	query := `
		INSERT INTO archers (name, position, accuracy, photo_key)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		a.Name, a.Position, a.Accuracy, a.PhotoKey,
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create archer: %w", err)
	}
	return nil
}

func (r *postgresArcherRepository) scanArcher(row interface{ Scan(dest ...interface{}) error }, a *models.Archer) error {
	return row.Scan(&a.ID, &a.Name, &a.Position, &a.Accuracy, &a.PhotoKey, &a.CreatedAt)
}

func (r *postgresArcherRepository) GetByID(ctx context.Context, id int) (*models.Archer, error) {
	query := `SELECT id, name, position, accuracy, photo_key, created_at FROM archers WHERE id = $1`

	a := &models.Archer{}
	err := r.scanArcher(r.db.QueryRowContext(ctx, query, id), a)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrArcherNotFound
		}
		return nil, fmt.Errorf("failed to get archer by id: %w", err)
	}
	return a, nil
}

func buildArcherFilterClause(filter ListArchersFilter, args *[]interface{}) string {
	var conditions []string
	if filter.Name != "" {
		*args = append(*args, "%"+filter.Name+"%")
		conditions = append(conditions, fmt.Sprintf("name ILIKE $%d", len(*args)))
	}
	if filter.Position != nil {
		*args = append(*args, *filter.Position)
		conditions = append(conditions, fmt.Sprintf("position = $%d", len(*args)))
	}
	if len(conditions) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conditions, " AND ")
}

func (r *postgresArcherRepository) List(ctx context.Context, filter ListArchersFilter) ([]*models.Archer, error) {
	args := make([]interface{}, 0, 4)
	query := `SELECT id, name, position, accuracy, photo_key, created_at FROM archers` +
		buildArcherFilterClause(filter, &args) +
		` ORDER BY name ASC, id ASC`

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list archers: %w", err)
	}
	defer rows.Close()

	archers := make([]*models.Archer, 0)
	for rows.Next() {
		a := &models.Archer{}
		if err := r.scanArcher(rows, a); err != nil {
			return nil, fmt.Errorf("failed to scan archer row: %w", err)
		}
		archers = append(archers, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating archer rows: %w", err)
	}
	return archers, nil
}

func (r *postgresArcherRepository) Count(ctx context.Context, filter ListArchersFilter) (int, error) {
	args := make([]interface{}, 0, 2)
	query := `SELECT COUNT(*) FROM archers` + buildArcherFilterClause(filter, &args)

	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count archers: %w", err)
	}
	return count, nil
}

func (r *postgresArcherRepository) Update(ctx context.Context, a *models.Archer) error {
	query := `UPDATE archers SET name = $1, position = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, a.Name, a.Position, a.ID)
	if err != nil {
		return fmt.Errorf("failed to update archer: %w", err)
	}
	return checkAffectedRows(result, ErrArcherNotFound)
}

func (r *postgresArcherRepository) UpdateAccuracy(ctx context.Context, exec SQLExecutor, id int, accuracy float64) error {
	if exec == nil {
		exec = r.db
	}
	query := `UPDATE archers SET accuracy = $1 WHERE id = $2`
	result, err := exec.ExecContext(ctx, query, accuracy, id)
	if err != nil {
		return fmt.Errorf("failed to update archer accuracy: %w", err)
	}
	return checkAffectedRows(result, ErrArcherNotFound)
}

func (r *postgresArcherRepository) UpdatePhotoKey(ctx context.Context, id int, photoKey *string) error {
	query := `UPDATE archers SET photo_key = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, photoKey, id)
	if err != nil {
		return fmt.Errorf("failed to update archer photo key: %w", err)
	}
	return checkAffectedRows(result, ErrArcherNotFound)
}

func (r *postgresArcherRepository) Delete(ctx context.Context, id int) error {
	query := `DELETE FROM archers WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete archer: %w", err)
	}
	return checkAffectedRows(result, ErrArcherNotFound)
}
