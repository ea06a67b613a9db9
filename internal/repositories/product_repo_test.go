package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"marketpipe/internal/models"
)

type ProductRepoTestSuite struct {
	suite.Suite
	mock    pgxmock.PgxPoolIface
	repo    ProductRepository
	context context.Context
}

func (suite *ProductRepoTestSuite) SetupTest() {
	mock, err := pgxmock.NewPool()
	assert.NoError(suite.T(), err)
	suite.mock = mock

	suite.repo = NewProductRepo(mock)
	suite.context = context.Background()
}

func (suite *ProductRepoTestSuite) TearDownTest() {
	suite.mock.Close()
}

func TestProductRepoTestSuite(t *testing.T) {
	suite.Run(t, new(ProductRepoTestSuite))
}

func sampleProduct(id string, price float64) *models.Product {
	currency := "USD"
	return &models.Product{
		ProductID:    id,
		Marketplace:  "mk1",
		ProductGroup: "Group A",
		UploadDate:   time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC),
		Title:        "Widget",
		Price:        &price,
		Currency:     &currency,
	}
}

func (suite *ProductRepoTestSuite) expectMerge(products ...*models.Product) {
	suite.mock.ExpectBegin()
	suite.mock.ExpectExec(`CREATE TEMP TABLE products_staging`).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	for _, p := range products {
		suite.mock.ExpectExec(`INSERT INTO products_staging`).
			WithArgs(p.ProductID, p.Marketplace, p.ProductGroup, p.UploadDate, p.Title,
				p.Description, p.Rating, p.Price, p.Currency, p.NumImages, p.SellerID).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}
	suite.mock.ExpectExec(`INSERT INTO products .+ ON CONFLICT \(product_id\) DO UPDATE`).
		WillReturnResult(pgxmock.NewResult("INSERT", int64(len(products))))
	suite.mock.ExpectCommit()
	suite.mock.ExpectRollback()
}

func (suite *ProductRepoTestSuite) TestMergeBatch_Success() {
	p := sampleProduct("A1", 9.99)
	suite.expectMerge(p)

	err := suite.repo.MergeBatch(suite.context, []*models.Product{p})
	assert.NoError(suite.T(), err)
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
}

func (suite *ProductRepoTestSuite) TestMergeBatch_RunTwiceSameBatch() {
	// Re-running an identical batch goes through the same staging+merge path;
	// the conflict clause updates in place instead of inserting a duplicate.
	p := sampleProduct("A1", 9.99)
	suite.expectMerge(p)
	suite.expectMerge(p)

	assert.NoError(suite.T(), suite.repo.MergeBatch(suite.context, []*models.Product{p}))
	assert.NoError(suite.T(), suite.repo.MergeBatch(suite.context, []*models.Product{p}))
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
}

func (suite *ProductRepoTestSuite) TestMergeBatch_EmptyBatchIsNoop() {
	err := suite.repo.MergeBatch(suite.context, nil)
	assert.NoError(suite.T(), err)
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
}

func (suite *ProductRepoTestSuite) TestMergeBatch_ForeignKeyViolationRollsBack() {
	p := sampleProduct("A1", 9.99)
	badSeller := int64(999)
	p.SellerID = &badSeller

	suite.mock.ExpectBegin()
	suite.mock.ExpectExec(`CREATE TEMP TABLE products_staging`).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	suite.mock.ExpectExec(`INSERT INTO products_staging`).
		WithArgs(p.ProductID, p.Marketplace, p.ProductGroup, p.UploadDate, p.Title,
			p.Description, p.Rating, p.Price, p.Currency, p.NumImages, p.SellerID).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	suite.mock.ExpectExec(`INSERT INTO products .+ ON CONFLICT \(product_id\) DO UPDATE`).
		WillReturnError(&pgconn.PgError{Code: "23503", Message: "foreign key violation"})
	suite.mock.ExpectRollback()

	err := suite.repo.MergeBatch(suite.context, []*models.Product{p})
	assert.ErrorIs(suite.T(), err, ErrIntegrity)
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
}

func (suite *ProductRepoTestSuite) TestMergeBatch_StagingInsertFailureRollsBack() {
	p := sampleProduct("A1", 9.99)

	suite.mock.ExpectBegin()
	suite.mock.ExpectExec(`CREATE TEMP TABLE products_staging`).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	suite.mock.ExpectExec(`INSERT INTO products_staging`).
		WithArgs(p.ProductID, p.Marketplace, p.ProductGroup, p.UploadDate, p.Title,
			p.Description, p.Rating, p.Price, p.Currency, p.NumImages, p.SellerID).
		WillReturnError(assert.AnError)
	suite.mock.ExpectRollback()

	err := suite.repo.MergeBatch(suite.context, []*models.Product{p})
	assert.Error(suite.T(), err)
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
}

func (suite *ProductRepoTestSuite) TestGetByID() {
	p := sampleProduct("A1", 9.99)
	rows := pgxmock.NewRows([]string{"product_id", "marketplace", "product_group", "upload_date", "title", "description", "rating", "price", "currency", "num_images", "seller_id"}).
		AddRow(p.ProductID, p.Marketplace, p.ProductGroup, p.UploadDate, p.Title, p.Description, p.Rating, p.Price, p.Currency, p.NumImages, p.SellerID)

	suite.mock.ExpectQuery(`SELECT .+ FROM products`).
		WithArgs("A1").
		WillReturnRows(rows)

	got, err := suite.repo.GetByID(suite.context, "A1")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "A1", got.ProductID)
	assert.Equal(suite.T(), 9.99, *got.Price)
}

func (suite *ProductRepoTestSuite) TestExistingIDs() {
	rows := pgxmock.NewRows([]string{"product_id"}).AddRow("A1").AddRow("B2")
	suite.mock.ExpectQuery(`SELECT product_id FROM products WHERE product_id = ANY`).
		WithArgs([]string{"A1", "B2", "C3"}).
		WillReturnRows(rows)

	existing, err := suite.repo.ExistingIDs(suite.context, []string{"A1", "B2", "C3"})
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), existing["A1"])
	assert.True(suite.T(), existing["B2"])
	assert.False(suite.T(), existing["C3"])
}

func (suite *ProductRepoTestSuite) TestUpdateNumImages() {
	suite.mock.ExpectExec(`UPDATE products SET num_images`).
		WithArgs(4, "A1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := suite.repo.UpdateNumImages(suite.context, "A1", 4)
	assert.NoError(suite.T(), err)
}
