package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pasabuy/pasabuy-backend/pkg/types"
)

func TestDistanceKMSymmetricAndZero(t *testing.T) {
	fairview := types.GeographyPoint{Lat: 14.7344, Lng: 121.0577}
	moa := types.GeographyPoint{Lat: 14.5352, Lng: 120.9822}

	assert.Equal(t, 0.0, DistanceKM(fairview, fairview))
	assert.InDelta(t, DistanceKM(fairview, moa), DistanceKM(moa, fairview), 1e-9)
}

func TestDistanceKMKnownValue(t *testing.T) {
	// one degree of latitude along a meridian
	a := types.GeographyPoint{Lat: 0, Lng: 0}
	b := types.GeographyPoint{Lat: 1, Lng: 0}
	assert.InDelta(t, 111.195, DistanceKM(a, b), 0.01)
}

func TestRoundDisplay(t *testing.T) {
	assert.Equal(t, 4.9, RoundDisplay(4.94))
	assert.Equal(t, 5.0, RoundDisplay(4.96))
	assert.Equal(t, 0.0, RoundDisplay(0.04))
}

func TestGazetteerResolve(t *testing.T) {
	g := NewGazetteer(nil)

	tests := []struct {
		name  string
		query string
		want  string
		found bool
	}{
		{name: "exact", query: "Gong Cha - SM Fairview", want: "Gong Cha - SM Fairview", found: true},
		{name: "case and punctuation", query: "gong cha sm fairview", want: "Gong Cha - SM Fairview", found: true},
		{name: "contained", query: "Trinoma", want: "Digital Walker - Trinoma", found: true},
		{name: "query contains store", query: "Jollibee - Commonwealth Ave branch", want: "Jollibee - Commonwealth", found: true},
		{name: "token overlap", query: "Mall of Asia Seaside", want: "SM Mall of Asia", found: true},
		{name: "single weak token", query: "SM", found: false},
		{name: "unknown", query: "Sari-sari store sa kanto", found: false},
		{name: "empty", query: "  ", found: false},
	}

	index := map[string]types.GeographyPoint{}
	for _, store := range g.Stores() {
		if _, ok := index[store.Name]; !ok {
			index[store.Name] = store.Point
		}
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			point, ok := g.Resolve(tt.query)
			require.Equal(t, tt.found, ok)
			if tt.found {
				assert.Equal(t, index[tt.want], point)
			}
		})
	}
}

func TestNewGazetteerCustomStores(t *testing.T) {
	g := NewGazetteer([]KnownStore{{Name: "Corner Bakery", Point: types.GeographyPoint{Lat: 1, Lng: 2}}})
	point, ok := g.Resolve("corner bakery")
	require.True(t, ok)
	assert.Equal(t, types.GeographyPoint{Lat: 1, Lng: 2}, point)

	_, ok = g.Resolve("SM Mall of Asia")
	assert.False(t, ok)
}
