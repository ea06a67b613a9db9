package plugins

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketpipe/internal/models"
)

func validContract() Contract {
	return Contract{
		Scrape: func(ctx context.Context, queries []string) ([]RawRecord, []RawRecord, error) {
			return nil, nil, nil
		},
		Process: func(raw []RawRecord) ([]models.ProductRow, []models.SellerRow, error) {
			return nil, nil, nil
		},
	}
}

func TestResolve_UnknownMarketplace(t *testing.T) {
	reg := NewRegistry()

	_, err := reg.Resolve("nope")
	assert.ErrorIs(t, err, ErrPluginNotFound)
}

func TestResolve_MissingProcessCapability(t *testing.T) {
	reg := NewRegistry()
	reg.Register("mk1", func() (Contract, error) {
		c := validContract()
		c.Process = nil
		return c, nil
	})

	_, err := reg.Resolve("mk1")
	assert.ErrorIs(t, err, ErrContractInvalid)
}

func TestResolve_MissingScrapeCapability(t *testing.T) {
	reg := NewRegistry()
	reg.Register("mk1", func() (Contract, error) {
		c := validContract()
		c.Scrape = nil
		return c, nil
	})

	_, err := reg.Resolve("mk1")
	assert.ErrorIs(t, err, ErrContractInvalid)
}

func TestResolve_FactoryFailure(t *testing.T) {
	reg := NewRegistry()
	reg.Register("mk1", func() (Contract, error) {
		return Contract{}, errors.New("bad credentials")
	})

	_, err := reg.Resolve("mk1")
	assert.ErrorIs(t, err, ErrContractInvalid)
}

func TestResolve_LazyAndCached(t *testing.T) {
	reg := NewRegistry()
	calls := 0
	reg.Register("mk1", func() (Contract, error) {
		calls++
		return validContract(), nil
	})

	require.Equal(t, 0, calls, "factory must not run before first resolve")

	_, err := reg.Resolve("mk1")
	require.NoError(t, err)
	_, err = reg.Resolve("mk1")
	require.NoError(t, err)

	assert.Equal(t, 1, calls, "factory must run once and be cached")
}

func TestCodes_SortedStable(t *testing.T) {
	reg := NewRegistry()
	reg.Register("vendora", func() (Contract, error) { return validContract(), nil })
	reg.Register("shoply", func() (Contract, error) { return validContract(), nil })

	assert.Equal(t, []string{"shoply", "vendora"}, reg.Codes())
}
