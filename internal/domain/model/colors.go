package model

// Color is an entry of a closed color catalog.
type Color struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Hex  string `json:"hex"`
}

// EyeColors lists the selectable eye colors. Similar shades are grouped.
var EyeColors = []Color{ //nolint:gochecknoglobals // read-only catalog
	{ID: "dark-brown", Name: "Dark Brown / Black", Hex: "#2A1810"},
	{ID: "brown", Name: "Brown", Hex: "#8B6F47"},
	{ID: "hazel", Name: "Hazel", Hex: "#8E7618"},
	{ID: "amber", Name: "Amber", Hex: "#D4A017"},
	{ID: "green", Name: "Green", Hex: "#2E8B57"},
	{ID: "blue", Name: "Blue", Hex: "#5A94D5"},
	{ID: "light-blue", Name: "Light Blue", Hex: "#87CEEB"},
}

// HairColors lists the selectable hair colors.
var HairColors = []Color{ //nolint:gochecknoglobals // read-only catalog
	{ID: "black", Name: "Black / Very Dark Brown", Hex: "#1C1C1C"},
	{ID: "dark-brown", Name: "Dark Brown / Brown", Hex: "#4B3621"},
	{ID: "light-brown", Name: "Light Brown", Hex: "#A0826D"},
	{ID: "dark-blonde", Name: "Dark Blonde / Blonde", Hex: "#B8860B"},
	{ID: "light-blonde", Name: "Light Blonde", Hex: "#F0E68C"},
	{ID: "platinum-blonde", Name: "Platinum Blonde", Hex: "#F5F5DC"},
}

// EyeColorMigration maps legacy eye color ids to current ones.
var EyeColorMigration = map[string]string{ //nolint:gochecknoglobals // read-only catalog
	"black":       "dark-brown",
	"dark-brown":  "dark-brown",
	"brown":       "brown",
	"light-brown": "brown",
	"hazel":       "hazel",
	"amber":       "amber",
	"green":       "green",
	"blue-grey":   "blue",
	"blue":        "blue",
	"light-blue":  "light-blue",
}

// HairColorMigration maps legacy hair color ids to current ones.
var HairColorMigration = map[string]string{ //nolint:gochecknoglobals // read-only catalog
	"black":           "black",
	"near-black":      "black",
	"very-dark-brown": "black",
	"dark-brown":      "dark-brown",
	"brown":           "dark-brown",
	"light-brown":     "light-brown",
	"dark-blonde":     "dark-blonde",
	"blonde":          "dark-blonde",
	"light-blonde":    "light-blonde",
	"platinum-blonde": "platinum-blonde",
}

// IsEyeColor reports whether id is in EyeColors.
func IsEyeColor(id string) bool { return inCatalog(EyeColors, id) }

// IsHairColor reports whether id is in HairColors.
func IsHairColor(id string) bool { return inCatalog(HairColors, id) }

// MigrateEyeColor returns the current id for a legacy one; unknown ids are
// returned unchanged with ok=false.
func MigrateEyeColor(id string) (string, bool) { return migrate(EyeColorMigration, id) }

// MigrateHairColor returns the current id for a legacy one.
func MigrateHairColor(id string) (string, bool) { return migrate(HairColorMigration, id) }

func inCatalog(catalog []Color, id string) bool {
	for _, c := range catalog {
		if c.ID == id {
			return true
		}
	}
	return false
}

func migrate(m map[string]string, id string) (string, bool) {
	if to, ok := m[id]; ok {
		return to, true
	}
	return id, false
}
