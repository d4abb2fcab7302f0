// internal/checklist/theme.go
package checklist

// DayKeys is the canonical weekday vocabulary for session keys. Free-text
// keys are still accepted everywhere; these are the ones the front end
// offers in its day selector.
var DayKeys = []string{"LUNDI", "MARDI", "JEUDI", "VENDREDI"}

var dayThemes = map[string]string{
	"LUNDI":    "#4F81BD",
	"MARDI":    "#9BBB59",
	"JEUDI":    "#C0504D",
	"VENDREDI": "#8064A2",
}

const defaultTheme = "#7F7F7F"

// DayTheme returns the accent color for a session key. Unknown keys get a
// neutral default rather than an error.
func DayTheme(key string) string {
	if theme, ok := dayThemes[key]; ok {
		return theme
	}
	return defaultTheme
}
