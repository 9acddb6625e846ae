package sheets

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"sarabot/internal/domain"
)

// Fuzzy-match thresholds. An exact or near-exact hit is used directly; a
// middling one needs the user to confirm; anything below is a miss.
const (
	MatchConfident = 0.9
	MatchPossible  = 0.6
)

// internalNotesColumn is the zero-based index of the column the brand
// master keeps internal remarks in. It never appears in replies.
const internalNotesColumn = 12

// Match is a fuzzy brand lookup result.
type Match struct {
	Brand domain.BrandData
	Ratio float64
}

// BrandRows converts the brand master sheet into per-brand records. The
// first column holds the brand name; known contact columns are lifted
// into their own fields, everything else lands in Fields.
func BrandRows(data *domain.SheetData) []domain.BrandData {
	addrCol := findColumn(data.Headers, "address")
	phoneCol := findColumn(data.Headers, "phone", "contact number", "mobile")
	emailCol := findColumn(data.Headers, "email")

	var brands []domain.BrandData
	for _, row := range data.Rows {
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		b := domain.BrandData{
			CompanyName: strings.TrimSpace(row[0]),
			Fields:      map[string]string{},
		}
		for j, cell := range row {
			if j == 0 || j == internalNotesColumn {
				continue
			}
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}
			switch j {
			case addrCol:
				b.Address = cell
			case phoneCol:
				b.Phone = cell
			case emailCol:
				b.Email = cell
			default:
				if j < len(data.Headers) && data.Headers[j] != "" {
					b.Fields[data.Headers[j]] = cell
				}
			}
		}
		brands = append(brands, b)
	}
	return brands
}

// BestMatch finds the brand whose name is closest to query. The ratio is
// the classic difflib similarity in [0, 1]; an exact case-insensitive hit
// short-circuits with 1.0.
func BestMatch(query string, brands []domain.BrandData) (Match, bool) {
	query = strings.TrimSpace(query)
	if query == "" || len(brands) == 0 {
		return Match{}, false
	}
	q := strings.ToLower(query)

	best := Match{Ratio: -1}
	for _, b := range brands {
		name := strings.ToLower(b.CompanyName)
		if name == q {
			return Match{Brand: b, Ratio: 1.0}, true
		}
		r := similarity(q, name)
		if r > best.Ratio {
			best = Match{Brand: b, Ratio: r}
		}
	}
	return best, best.Ratio >= 0
}

// similarity is difflib's SequenceMatcher ratio computed per character.
func similarity(a, b string) float64 {
	return difflib.NewMatcher(splitChars(a), splitChars(b)).Ratio()
}

func splitChars(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
