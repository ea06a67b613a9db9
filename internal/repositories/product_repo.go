package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"marketpipe/internal/models"
)

// ErrIntegrity reports a foreign-key violation during a merge. The whole
// batch is rolled back; partial application would break the atomicity
// guarantee.
var ErrIntegrity = errors.New("merge batch violates referential integrity")

type ProductRepository interface {
	MergeBatch(ctx context.Context, products []*models.Product) error
	GetByID(ctx context.Context, productID string) (*models.Product, error)
	ExistingIDs(ctx context.Context, productIDs []string) (map[string]bool, error)
	UpdateNumImages(ctx context.Context, productID string, numImages int) error
}

type productRepo struct {
	db Database
}

func NewProductRepo(db Database) ProductRepository {
	return &productRepo{db: db}
}

const createStagingSQL = `
	CREATE TEMP TABLE products_staging (LIKE products INCLUDING DEFAULTS) ON COMMIT DROP
`

const insertStagingSQL = `
	INSERT INTO products_staging (product_id, marketplace, product_group, upload_date, title, description, rating, price, currency, num_images, seller_id)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
`

const mergeSQL = `
	INSERT INTO products (product_id, marketplace, product_group, upload_date, title, description, rating, price, currency, num_images, seller_id)
	SELECT product_id, marketplace, product_group, upload_date, title, description, rating, price, currency, num_images, seller_id
	FROM products_staging
	ON CONFLICT (product_id) DO UPDATE SET
		marketplace   = EXCLUDED.marketplace,
		product_group = EXCLUDED.product_group,
		upload_date   = EXCLUDED.upload_date,
		title         = EXCLUDED.title,
		description   = EXCLUDED.description,
		rating        = EXCLUDED.rating,
		price         = EXCLUDED.price,
		currency      = EXCLUDED.currency,
		num_images    = EXCLUDED.num_images,
		seller_id     = EXCLUDED.seller_id
`

// MergeBatch loads the batch into a transaction-scoped staging table and
// merges it into products in one atomic statement: existing ProductIDs are
// updated in place, new ones inserted. Running the same batch twice leaves
// the table in the same state as running it once. The staging table drops
// with the transaction on both success and failure.
func (r *productRepo) MergeBatch(ctx context.Context, products []*models.Product) error {
	if len(products) == 0 {
		return nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin merge transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, createStagingSQL); err != nil {
		return fmt.Errorf("failed to create staging table: %w", err)
	}

	for _, p := range products {
		_, err := tx.Exec(ctx, insertStagingSQL,
			p.ProductID, p.Marketplace, p.ProductGroup, p.UploadDate, p.Title,
			p.Description, p.Rating, p.Price, p.Currency, p.NumImages, p.SellerID)
		if err != nil {
			return fmt.Errorf("failed to stage product %s: %w", p.ProductID, err)
		}
	}

	if _, err := tx.Exec(ctx, mergeSQL); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return fmt.Errorf("%w: %v", ErrIntegrity, err)
		}
		return fmt.Errorf("failed to merge staged products: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *productRepo) GetByID(ctx context.Context, productID string) (*models.Product, error) {
	product := &models.Product{}
	query := `
		SELECT product_id, marketplace, product_group, upload_date, title, description, rating, price, currency, num_images, seller_id
		FROM products
		WHERE product_id = $1
	`
	err := r.db.QueryRow(ctx, query, productID).Scan(
		&product.ProductID, &product.Marketplace, &product.ProductGroup, &product.UploadDate,
		&product.Title, &product.Description, &product.Rating, &product.Price,
		&product.Currency, &product.NumImages, &product.SellerID)
	if err != nil {
		return nil, err
	}
	return product, nil
}

// ExistingIDs reports which of the given ProductIDs already have a durable
// row. Append-only children (images, reviews) are filtered against this so
// they never dangle.
func (r *productRepo) ExistingIDs(ctx context.Context, productIDs []string) (map[string]bool, error) {
	query := `SELECT product_id FROM products WHERE product_id = ANY($1)`
	rows, err := r.db.Query(ctx, query, productIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	existing := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		existing[id] = true
	}
	return existing, rows.Err()
}

func (r *productRepo) UpdateNumImages(ctx context.Context, productID string, numImages int) error {
	query := `UPDATE products SET num_images = $1 WHERE product_id = $2`
	_, err := r.db.Exec(ctx, query, numImages, productID)
	return err
}
