package extract

import (
	"strings"

	"github.com/ppiankov/airwatch/internal/normalize"
)

const maxPlaceWords = 3

// placeStops end a captured location
var placeStops = map[string]bool{
	"та": true, "і": true, "й": true, "через": true, "з": true, "із": true, "зі": true,
	"в": true, "у": true, "по": true, "на": true, "курсом": true, "напрямку": true,
	"повз": true, "від": true, "до": true, "бік": true, "шт": true, "група": true,
	"групи": true, "вектор": true, "маневрує": true, "кружляє": true, "-": true, "→": true,
}

// placeLeads are direction words that precede the place itself
var placeLeads = map[string]bool{
	"півночі": true, "півдні": true, "сході": true, "заході": true,
	"околиці": true, "околицях": true, "районі": true, "район": true,
	"межі": true, "кордоні": true, "в": true, "у": true, "над": true, "біля": true,
}

// cutPlace trims a captured location down to the name it starts with
func cutPlace(raw string) string {
	if i := strings.IndexAny(raw, ",;!?(\n:"); i >= 0 {
		raw = raw[:i]
	}

	var kept []string
	for _, w := range strings.Fields(raw) {
		lower := strings.ToLower(strings.Trim(w, "."))
		if len(kept) == 0 && placeLeads[lower] {
			continue
		}
		if placeStops[lower] || isNumber(lower) {
			break
		}
		kept = append(kept, w)
		if len(kept) == maxPlaceWords {
			break
		}
	}
	return strings.Join(kept, " ")
}

// place resolves a captured location into a city and its region, or into a
// region alone when the capture names an oblast.
func place(raw string) (city, region string) {
	raw = cutPlace(raw)
	if raw == "" {
		return "", ""
	}
	if normalize.IsRegionName(raw) {
		return "", normalize.Region(raw)
	}
	city = normalize.City(raw)
	region, _ = normalize.RegionOf(city)
	return city, region
}

func isNumber(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != 'х' && r != 'x' {
			return false
		}
	}
	return true
}
