package model

import "strings"

// Threat is the closed set of threat categories an event can carry
type Threat string

const (
	ThreatUAV       Threat = "uav"       // Attack drones (Shahed, "мопед", "БПЛА")
	ThreatMissile   Threat = "missile"   // Cruise missiles, high-speed targets
	ThreatBallistic Threat = "ballistic" // Ballistic missiles
	ThreatKAB       Threat = "kab"       // Guided aerial bombs
	ThreatExplosion Threat = "explosion" // Reported explosions
	ThreatLaunch    Threat = "launch"    // Reported launches (airfields, ships)
	ThreatRecon     Threat = "recon"     // Reconnaissance drones
	ThreatUnknown   Threat = "unknown"   // Recognized as a threat report but not classified
)

// AllThreats lists the valid threat categories in display order
var AllThreats = []Threat{
	ThreatUAV,
	ThreatMissile,
	ThreatBallistic,
	ThreatKAB,
	ThreatExplosion,
	ThreatLaunch,
	ThreatRecon,
}

var threatAliases = map[string]Threat{
	"uav":       ThreatUAV,
	"drone":     ThreatUAV,
	"shahed":    ThreatUAV,
	"bpla":      ThreatUAV,
	"бпла":      ThreatUAV,
	"бпла.":     ThreatUAV,
	"дрон":      ThreatUAV,
	"шахед":     ThreatUAV,
	"мопед":     ThreatUAV,
	"missile":   ThreatMissile,
	"rocket":    ThreatMissile,
	"cruise":    ThreatMissile,
	"ракета":    ThreatMissile,
	"кр":        ThreatMissile,
	"ballistic": ThreatBallistic,
	"балістика": ThreatBallistic,
	"kab":       ThreatKAB,
	"каб":       ThreatKAB,
	"explosion": ThreatExplosion,
	"вибух":     ThreatExplosion,
	"вибухи":    ThreatExplosion,
	"launch":    ThreatLaunch,
	"пуск":      ThreatLaunch,
	"пуски":     ThreatLaunch,
	"recon":     ThreatRecon,
	"розвідник": ThreatRecon,
	"unknown":   ThreatUnknown,
}

// ParseThreat maps a category name or a known alias to a Threat.
// The second return value is false for anything outside the closed set.
func ParseThreat(s string) (Threat, bool) {
	t, ok := threatAliases[strings.ToLower(strings.TrimSpace(s))]
	return t, ok
}

// Valid reports whether t is a recognized, classified category
func (t Threat) Valid() bool {
	for _, known := range AllThreats {
		if t == known {
			return true
		}
	}
	return false
}

// Label returns the display name used in outbound notifications
func (t Threat) Label() string {
	if t == "" {
		return string(ThreatUnknown)
	}
	return string(t)
}
