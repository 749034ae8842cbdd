package geo

import (
	"strings"

	"github.com/pasabuy/pasabuy-backend/pkg/types"
)

// KnownStore is a named landmark with a fixed coordinate.
type KnownStore struct {
	Name  string
	Point types.GeographyPoint
}

// Gazetteer resolves free-text store names to coordinates.
type Gazetteer struct {
	stores []KnownStore
}

var metroManilaStores = []KnownStore{
	{Name: "Gong Cha - SM Fairview", Point: types.GeographyPoint{Lat: 14.7344, Lng: 121.0577}},
	{Name: "SM City Fairview", Point: types.GeographyPoint{Lat: 14.7344, Lng: 121.0577}},
	{Name: "Jollibee - Commonwealth", Point: types.GeographyPoint{Lat: 14.6975, Lng: 121.0866}},
	{Name: "Digital Walker - Trinoma", Point: types.GeographyPoint{Lat: 14.6534, Lng: 121.0334}},
	{Name: "Trinoma", Point: types.GeographyPoint{Lat: 14.6534, Lng: 121.0334}},
	{Name: "SM North EDSA", Point: types.GeographyPoint{Lat: 14.6565, Lng: 121.0293}},
	{Name: "Robinsons Galleria", Point: types.GeographyPoint{Lat: 14.5907, Lng: 121.0597}},
	{Name: "SM Megamall", Point: types.GeographyPoint{Lat: 14.5849, Lng: 121.0566}},
	{Name: "SM Mall of Asia", Point: types.GeographyPoint{Lat: 14.5352, Lng: 120.9822}},
	{Name: "Greenbelt", Point: types.GeographyPoint{Lat: 14.5526, Lng: 121.0210}},
	{Name: "Glorietta", Point: types.GeographyPoint{Lat: 14.5509, Lng: 121.0256}},
	{Name: "Bonifacio High Street", Point: types.GeographyPoint{Lat: 14.5509, Lng: 121.0503}},
	{Name: "UP Town Center", Point: types.GeographyPoint{Lat: 14.6499, Lng: 121.0750}},
	{Name: "Ali Mall - Cubao", Point: types.GeographyPoint{Lat: 14.6208, Lng: 121.0543}},
	{Name: "Divisoria Mall", Point: types.GeographyPoint{Lat: 14.6040, Lng: 120.9720}},
}

// NewGazetteer builds a gazetteer over stores, or the Metro Manila set when
// stores is empty.
func NewGazetteer(stores []KnownStore) *Gazetteer {
	if len(stores) == 0 {
		stores = metroManilaStores
	}
	copied := make([]KnownStore, len(stores))
	copy(copied, stores)
	return &Gazetteer{stores: copied}
}

// Stores returns the known stores in declaration order.
func (g *Gazetteer) Stores() []KnownStore {
	out := make([]KnownStore, len(g.stores))
	copy(out, g.stores)
	return out
}

// Resolve finds the coordinate of a store by fuzzy name match: exact
// normalized match first, then containment either way, then the store whose
// tokens overlap the query the most.
func (g *Gazetteer) Resolve(name string) (types.GeographyPoint, bool) {
	query := normalizeName(name)
	if query == "" {
		return types.GeographyPoint{}, false
	}

	for _, store := range g.stores {
		if normalizeName(store.Name) == query {
			return store.Point, true
		}
	}
	for _, store := range g.stores {
		candidate := normalizeName(store.Name)
		if containsPhrase(candidate, query) || containsPhrase(query, candidate) {
			return store.Point, true
		}
	}

	queryTokens := tokens(query)
	best, bestScore := -1, 0
	for i, store := range g.stores {
		score := overlap(queryTokens, tokens(normalizeName(store.Name)))
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	// a single shared word like "sm" is too weak to place a store
	if best >= 0 && bestScore >= 2 {
		return g.stores[best].Point, true
	}
	return types.GeographyPoint{}, false
}

func normalizeName(value string) string {
	var b strings.Builder
	lastSpace := true
	for _, r := range strings.ToLower(value) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastSpace = false
		default:
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// containsPhrase matches needle on word boundaries. Needles shorter than
// minPhraseLen never match.
func containsPhrase(haystack, needle string) bool {
	if len(needle) < minPhraseLen {
		return false
	}
	return strings.Contains(" "+haystack+" ", " "+needle+" ")
}

const minPhraseLen = 4

func tokens(value string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, field := range strings.Fields(value) {
		out[field] = struct{}{}
	}
	return out
}

func overlap(a, b map[string]struct{}) int {
	count := 0
	for token := range a {
		if _, ok := b[token]; ok {
			count++
		}
	}
	return count
}
