package shared

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"
)

// FormatDuration formats a duration for human-readable display
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	} else if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	return fmt.Sprintf("%dh", int(d.Hours()))
}

var adjectives = []string{
	"Arctic", "Bitter", "Broken", "Crimson", "Distant", "Feral", "Gilded",
	"Hollow", "Iron", "Jagged", "Lunar", "Mute", "Night", "Oblique",
	"Pale", "Quiet", "Rogue", "Sable", "Silent", "Stray", "Torn",
	"Umber", "Vivid", "Wicked", "Winter", "Zero",
}

var nouns = []string{
	"Anvil", "Basilisk", "Cinder", "Drift", "Ember", "Falcon", "Gale",
	"Harrier", "Icicle", "Jackal", "Kestrel", "Lantern", "Mantis",
	"Needle", "Osprey", "Pike", "Quill", "Raven", "Signal", "Talon",
	"Umbra", "Vector", "Wraith", "Zenith",
}

// GenerateCodename generates a random military-style codename used as
// display metadata for sessions.
func GenerateCodename() string {
	b := make([]byte, 2)
	rand.Read(b)
	return strings.ToUpper(fmt.Sprintf("%s%s",
		adjectives[int(b[0])%len(adjectives)],
		nouns[int(b[1])%len(nouns)]))
}
