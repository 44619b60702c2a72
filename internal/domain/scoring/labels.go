package scoring

// Medal names for the podium.
const (
	MedalGold   = "gold"
	MedalSilver = "silver"
	MedalBronze = "bronze"
)

// Medal returns the medal awarded for rank, or "" off the podium.
func Medal(rank int) string {
	switch rank {
	case 1:
		return MedalGold
	case 2:
		return MedalSilver
	case 3:
		return MedalBronze
	default:
		return ""
	}
}

// Band is a named score range shown next to a result.
type Band struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

var bands = []struct { //nolint:gochecknoglobals // read-only table
	max  int
	band Band
}{
	{0, Band{Name: "perfect", Text: "Perfect!"}},
	{5, Band{Name: "excellent", Text: "Excellent!"}},
	{10, Band{Name: "very_good", Text: "Very Good!"}},
	{20, Band{Name: "good", Text: "Good!"}},
	{30, Band{Name: "not_bad", Text: "Not bad!"}},
}

var niceTry = Band{Name: "nice_try", Text: "Nice try!"} //nolint:gochecknoglobals // read-only

// Label returns the band a score falls in.
func Label(score int) Band {
	for _, b := range bands {
		if score <= b.max {
			return b.band
		}
	}
	return niceTry
}

// Tone returns the UI color band for a score.
func Tone(score int) string {
	switch {
	case score <= 0:
		return "perfect"
	case score <= 5:
		return "excellent"
	case score <= 10:
		return "good"
	case score <= 20:
		return "okay"
	default:
		return "far"
	}
}
