package catalog

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/Arish613/go-technician-sub001/cart-service/internal/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

var ErrServiceNotFound = errors.New("service not found")

// Service is a catalog row. Sub-services carry the id of their parent.
type Service struct {
	domain.LineItem
	ParentID    string `json:"parent_id,omitempty"`
	Description string `json:"description,omitempty"`
}

type Repository struct {
	db *sql.DB
}

type RepoInterface interface {
	ListServices(ctx context.Context) ([]*Service, error)
	ListSubServices(ctx context.Context, parentID string) ([]*Service, error)
	GetService(ctx context.Context, id string) (*Service, error)
	Close() error
	RunMigrations() error
}

var _ RepoInterface = (*Repository)(nil)

func NewRepository(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations() error {
	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("could not open embedded migrations: %w", err)
	}

	driver, err := sqlite.WithInstance(r.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

const selectServices = `
		SELECT id, COALESCE(parent_id, ''), name, category, description, unit_price, discounted_price
		FROM services
	`

func (r *Repository) ListServices(ctx context.Context) ([]*Service, error) {
	return r.query(ctx, selectServices+`ORDER BY position, id`)
}

func (r *Repository) ListSubServices(ctx context.Context, parentID string) ([]*Service, error) {
	return r.query(ctx, selectServices+`WHERE parent_id = ? ORDER BY position, id`, parentID)
}

func (r *Repository) GetService(ctx context.Context, id string) (*Service, error) {
	services, err := r.query(ctx, selectServices+`WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(services) == 0 {
		return nil, ErrServiceNotFound
	}
	return services[0], nil
}

func (r *Repository) query(ctx context.Context, query string, args ...any) ([]*Service, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query services: %w", err)
	}
	defer rows.Close()

	var services []*Service
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		services = append(services, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return services, nil
}

// scanService maps a row to a Service and rejects rows the cart cannot price.
func scanService(rows *sql.Rows) (*Service, error) {
	s := &Service{}
	var discounted decimal.NullDecimal
	err := rows.Scan(
		&s.ID,
		&s.ParentID,
		&s.Name,
		&s.Category,
		&s.Description,
		&s.UnitPrice,
		&discounted,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan service: %w", err)
	}
	if discounted.Valid {
		d := discounted.Decimal
		s.DiscountedPrice = &d
	}

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("catalog row %q: %w", s.ID, err)
	}
	return s, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}
