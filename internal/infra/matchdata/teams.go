package matchdata

import "matchday_notification_bot/internal/domain/subscriber"

// teamCities maps the upstream short team name to the normalized home city.
var teamCities = map[string]string{
	"Milan":         "milano",
	"Inter":         "milano",
	"Roma":          "roma",
	"Lazio":         "roma",
	"Napoli":        "napoli",
	"Juventus":      "torino",
	"Torino":        "torino",
	"Fiorentina":    "firenze",
	"Genoa":         "genova",
	"Sampdoria":     "genova",
	"Bologna":       "bologna",
	"Hellas Verona": "verona",
	"Verona":        "verona",
	"Atalanta":      "bergamo",
	"Udinese":       "udine",
	"Sassuolo":      "reggio emilia",
	"Empoli":        "empoli",
	"Lecce":         "lecce",
	"Salernitana":   "salerno",
	"Frosinone":     "frosinone",
	"Cagliari":      "cagliari",
	"Parma":         "parma",
	"Como 1907":     "como",
	"Como":          "como",
	"Monza":         "monza",
	"Venezia":       "venezia",
	"Cremonese":     "cremona",
	"Pisa":          "pisa",
}

// cityAliases folds common English spellings into the Italian city name.
var cityAliases = map[string]string{
	"milan":    "milano",
	"rome":     "roma",
	"turin":    "torino",
	"naples":   "napoli",
	"florence": "firenze",
	"genoa":    "genova",
	"venice":   "venezia",
}

// CityForTeam returns the normalized home city of a team.
func CityForTeam(team string) (string, bool) {
	city, ok := teamCities[team]
	return city, ok
}

// CanonicalCity normalizes user input and resolves aliases.
func CanonicalCity(city string) string {
	c := subscriber.NormalizeCity(city)
	if alias, ok := cityAliases[c]; ok {
		return alias
	}
	return c
}

// KnownCity reports whether any tracked team plays its home games in city.
func KnownCity(city string) bool {
	c := CanonicalCity(city)
	for _, v := range teamCities {
		if v == c {
			return true
		}
	}
	return false
}
