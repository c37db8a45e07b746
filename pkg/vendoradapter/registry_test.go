package vendoradapter

import (
	"testing"

	"github.com/engagic/pipeline/pkg/httpfetch"
	"github.com/engagic/pipeline/pkg/models"
	"github.com/engagic/pipeline/pkg/ratelimit"
	"github.com/stretchr/testify/require"
)

func newTestRegistry() *Registry {
	return NewRegistry(httpfetch.New("engagic-test/1.0", httpfetch.ListingTimeout), ratelimit.New(nil))
}

func TestRegistry_ForBuildsAndCachesPerCity(t *testing.T) {
	r := newTestRegistry()
	city := models.City{Banana: "paloaltoCA", Vendor: models.VendorPrimeGov, Slug: "cityofpaloalto"}

	a1, err := r.For(city, "")
	require.NoError(t, err)
	require.Equal(t, models.VendorPrimeGov, a1.Vendor())

	a2, err := r.For(city, "")
	require.NoError(t, err)
	require.Same(t, a1, a2)
}

func TestRegistry_DistinctCitiesGetDistinctAdapters(t *testing.T) {
	r := newTestRegistry()

	paloAlto, err := r.For(models.City{Banana: "paloaltoCA", Vendor: models.VendorPrimeGov, Slug: "cityofpaloalto"}, "")
	require.NoError(t, err)

	montpelier, err := r.For(models.City{Banana: "montpelierVT", Vendor: models.VendorCivicClerk, Slug: "montpeliervt"}, "")
	require.NoError(t, err)

	require.NotSame(t, paloAlto, montpelier)
}

func TestRegistry_UnknownVendorErrors(t *testing.T) {
	r := newTestRegistry()
	_, err := r.For(models.City{Banana: "nowhereXX", Vendor: models.Vendor("nosuchvendor"), Slug: "x"}, "")
	require.Error(t, err)
}
