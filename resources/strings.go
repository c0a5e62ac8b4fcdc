package resources

import (
	"os"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/olablt/wander/tiles"
)

// Key is a localizable string. The English text is the key.
type Key string

const (
	AppTitle        Key = "Wander"
	DroppedPin      Key = "Dropped Pin"
	MenuNormal      Key = "Normal"
	MenuHybrid      Key = "Hybrid"
	MenuSatellite   Key = "Satellite"
	MenuTerrain     Key = "Terrain"
	LocationPrompt  Key = "Allow Wander to access this device's location?"
	PromptAllow     Key = "Allow"
	PromptDeny      Key = "Deny"
	PanoramaLoading Key = "Loading street view…"
	PanoramaFailed  Key = "Street view is not available here"

	snippetFormat = "Lat: %.5f, Long: %.5f"
)

var translations = map[language.Tag]map[Key]string{
	language.German: {
		DroppedPin:      "Abgelegte Markierung",
		MenuNormal:      "Normal",
		MenuHybrid:      "Hybrid",
		MenuSatellite:   "Satellit",
		MenuTerrain:     "Gelände",
		LocationPrompt:  "Darf Wander auf den Standort dieses Geräts zugreifen?",
		PromptAllow:     "Zulassen",
		PromptDeny:      "Ablehnen",
		PanoramaLoading: "Street View wird geladen…",
		PanoramaFailed:  "Street View ist hier nicht verfügbar",
	},
	language.French: {
		DroppedPin:      "Repère déposé",
		MenuNormal:      "Normal",
		MenuHybrid:      "Mixte",
		MenuSatellite:   "Satellite",
		MenuTerrain:     "Relief",
		LocationPrompt:  "Autoriser Wander à accéder à la position de cet appareil ?",
		PromptAllow:     "Autoriser",
		PromptDeny:      "Refuser",
		PanoramaLoading: "Chargement de Street View…",
		PanoramaFailed:  "Street View n'est pas disponible ici",
	},
}

func init() {
	for tag, msgs := range translations {
		for key, text := range msgs {
			_ = message.SetString(tag, string(key), text)
		}
	}
}

// String returns the localized text for key.
func (b *Bundle) String(key Key) string {
	return b.printer.Sprintf(string(key))
}

// Snippet formats a coordinate for a dropped pin using the locale's
// decimal separator.
func (b *Bundle) Snippet(ll tiles.LatLng) string {
	return b.printer.Sprintf(snippetFormat, ll.Lat, ll.Lng)
}

// ParseLocale turns a config value or POSIX locale ("de_DE.UTF-8") into a
// tag. Empty input falls back to LANG, then English.
func ParseLocale(s string) language.Tag {
	if s == "" {
		s = os.Getenv("LANG")
	}
	if i := strings.IndexAny(s, ".@"); i >= 0 {
		s = s[:i]
	}
	s = strings.ReplaceAll(s, "_", "-")
	if s == "" || s == "C" || s == "POSIX" {
		return language.English
	}
	tag, err := language.Parse(s)
	if err != nil {
		return language.English
	}
	return tag
}
