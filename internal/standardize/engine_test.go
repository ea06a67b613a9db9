package standardize

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketpipe/internal/models"
	"marketpipe/internal/plugins"
	"marketpipe/internal/storage"
)

var testDate = time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)

func passthrough(products []models.ProductRow, sellers []models.SellerRow) plugins.ProcessFunc {
	return func(raw []plugins.RawRecord) ([]models.ProductRow, []models.SellerRow, error) {
		return products, sellers, nil
	}
}

func fptr(f float64) *float64 { return &f }
func sptr(s string) *string   { return &s }

func TestStandardizeFillsDefaults(t *testing.T) {
	engine := NewEngine([]string{"shoply"})
	process := passthrough([]models.ProductRow{
		{ProductID: "A1", Title: "Widget"},
	}, nil)

	rows, _, stats, err := engine.Standardize("shoply", "Group A", testDate, process, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "shoply", rows[0].Marketplace)
	assert.Equal(t, "Group A", rows[0].ProductGroup)
	assert.Equal(t, testDate, rows[0].UploadDate)
	assert.Equal(t, Stats{Accepted: 1}, stats)
}

func TestStandardizeRejectsInvalidRows(t *testing.T) {
	engine := NewEngine([]string{"shoply"})

	cases := []struct {
		name string
		row  models.ProductRow
	}{
		{"empty product id", models.ProductRow{Title: "Widget"}},
		{"empty title", models.ProductRow{ProductID: "A1"}},
		{"unconfigured marketplace", models.ProductRow{ProductID: "A1", Title: "Widget", Marketplace: "unknown"}},
		{"rating above bounds", models.ProductRow{ProductID: "A1", Title: "Widget", Rating: fptr(5.5)}},
		{"rating below bounds", models.ProductRow{ProductID: "A1", Title: "Widget", Rating: fptr(-1)}},
		{"negative price", models.ProductRow{ProductID: "A1", Title: "Widget", Price: fptr(-9.99)}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rows, _, stats, err := engine.Standardize("shoply", "Group A", testDate, passthrough([]models.ProductRow{tc.row}, nil), nil)
			require.NoError(t, err)
			assert.Empty(t, rows)
			assert.Equal(t, Stats{Rejected: 1}, stats)
		})
	}
}

func TestStandardizeKeepsGoodRowsAroundBadOnes(t *testing.T) {
	engine := NewEngine([]string{"shoply"})
	process := passthrough([]models.ProductRow{
		{ProductID: "A1", Title: "Widget"},
		{ProductID: "", Title: "Nameless"},
		{ProductID: "B2", Title: "Gadget", Rating: fptr(4.5)},
	}, nil)

	rows, _, stats, err := engine.Standardize("shoply", "Group A", testDate, process, nil)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "A1", rows[0].ProductID)
	assert.Equal(t, "B2", rows[1].ProductID)
	assert.Equal(t, Stats{Accepted: 2, Rejected: 1}, stats)
}

func TestStandardizeProcessError(t *testing.T) {
	engine := NewEngine([]string{"shoply"})
	process := func(raw []plugins.RawRecord) ([]models.ProductRow, []models.SellerRow, error) {
		return nil, nil, assert.AnError
	}

	_, _, _, err := engine.Standardize("shoply", "Group A", testDate, process, nil)
	assert.Error(t, err)
}

func TestStandardizeCleansAndTruncates(t *testing.T) {
	engine := NewEngine([]string{"shoply"})
	longDesc := strings.Repeat("x", 5000)
	process := passthrough([]models.ProductRow{
		{
			ProductID:   "A1",
			Title:       "Widget—Pro​  Max",
			Description: &longDesc,
			Currency:    sptr("USDX"),
		},
	}, nil)

	rows, _, _, err := engine.Standardize("shoply", "Group A", testDate, process, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Widget-Pro Max", rows[0].Title)
	assert.Len(t, *rows[0].Description, 4000)
	assert.Equal(t, "USD", *rows[0].Currency)
}

func TestCleanText(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"  padded  ", "padded"},
		{"line\r\nbreak", "line break"},
		{"tab\tseparated", "tab separated"},
		{"en–dash em—dash", "en-dash em-dash"},
		{"zero​width", "zerowidth"},
		{"many    spaces", "many spaces"},
		{"ctrl\x01char", "ctrlchar"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CleanText(tc.in), "input %q", tc.in)
	}
}

func TestTruncateRespectsRunes(t *testing.T) {
	assert.Equal(t, "héllo", Truncate("héllo", 5))
	assert.Equal(t, "hél", Truncate("héllo", 3))
	assert.Equal(t, "", Truncate("", 3))
}

func TestDedupeSellersPrefersURL(t *testing.T) {
	url := "https://shoply.example/sellers/acme"
	rows := []models.SellerRow{
		{Name: "Acme", Marketplace: "shoply"},
		{Name: "Acme", Marketplace: "shoply", URL: &url},
		{Name: "Acme", Marketplace: "vendora"},
		{Name: "", Marketplace: "shoply"},
	}

	out := dedupeSellers(rows)
	require.Len(t, out, 2)
	assert.Equal(t, "shoply", out[0].Marketplace)
	require.NotNil(t, out[0].URL)
	assert.Equal(t, url, *out[0].URL)
	assert.Equal(t, "vendora", out[1].Marketplace)
}

func TestReviewsFlattensEntries(t *testing.T) {
	raw := []plugins.RawRecord{
		{
			"product_id": "A1",
			"reviews": []any{
				map[string]any{"text": "Great widget", "rating": float64(5), "date": "2026-08-01"},
				map[string]any{"review_text": "Broke in a week", "rating": "1"},
			},
		},
		{
			// Unknown identifier field, skipped entirely.
			"sku":     "X9",
			"reviews": []any{map[string]any{"text": "orphan"}},
		},
		{
			"itemId":  "B2",
			"reviews": []any{map[string]any{"body": "Solid", "rating": float64(4)}},
		},
	}

	reviews := Reviews(raw, []string{"product_id", "itemId"})
	require.Len(t, reviews, 3)
	assert.Equal(t, "A1", reviews[0].ProductID)
	assert.Equal(t, "Great widget", reviews[0].ReviewText)
	assert.Equal(t, 5, *reviews[0].Rating)
	assert.Equal(t, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), reviews[0].ReviewTs)
	assert.Equal(t, 1, *reviews[1].Rating)
	assert.True(t, reviews[1].ReviewTs.IsZero())
	assert.Equal(t, "B2", reviews[2].ProductID)
}

type memBlob struct {
	objects map[string][]byte
}

func (m *memBlob) EnsureBucket(ctx context.Context, bucket string) error { return nil }
func (m *memBlob) PutBytes(ctx context.Context, path storage.ObjectPath, data []byte, contentType string) error {
	m.objects[path.String()] = data
	return nil
}
func (m *memBlob) GetBytes(ctx context.Context, path storage.ObjectPath) ([]byte, error) {
	return m.objects[path.String()], nil
}
func (m *memBlob) PutJSON(ctx context.Context, path storage.ObjectPath, v any) error { return nil }
func (m *memBlob) GetJSON(ctx context.Context, path storage.ObjectPath, v any) error { return nil }
func (m *memBlob) ApplyRawLifecycle(ctx context.Context) error                       { return nil }

func TestWriteProcessed(t *testing.T) {
	engine := NewEngine([]string{"shoply"})
	blob := &memBlob{objects: make(map[string][]byte)}

	products := []models.ProductRow{
		{ProductID: "A1", Marketplace: "shoply", ProductGroup: "Group A", UploadDate: testDate, Title: "Widget", Price: fptr(9.99), Currency: sptr("USD")},
	}
	sellers := []models.SellerRow{{Name: "Acme", Marketplace: "shoply"}}

	err := engine.WriteProcessed(context.Background(), blob, "shoply", "2026-08-28", products, sellers)
	require.NoError(t, err)

	productData := blob.objects[storage.ProcessedProducts("shoply", "2026-08-28").String()]
	require.NotEmpty(t, productData)
	lines := strings.Split(strings.TrimSpace(string(productData)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "product_id")
	assert.Contains(t, lines[1], "A1")
	assert.Contains(t, lines[1], "9.99")

	sellerData := blob.objects[storage.ProcessedSellers("shoply", "2026-08-28").String()]
	assert.Contains(t, string(sellerData), "Acme")
}
