package extract

import (
	"regexp"

	"github.com/ppiankov/airwatch/internal/model"
	"github.com/ppiankov/airwatch/internal/normalize"
)

// Token fragments shared by the catalog patterns
const (
	wordStart  = `(?:^|[^\p{L}])`
	uavWords   = `(?:бпла|шахед\S*|дрон\S*|мопед\S*|герань\S*|гербер\S*)`
	rocketWord = `(?:ракет\S*|кр|крилат\S*|калібр\S*|іскандер\S*|х-\d+\S*)`
	kabWord    = `каб(?:и|ів|ами)?`
	anyWords   = `(?:\s+[^\n]*?)?`
	toward     = `\s+(?:курсом\s+)?(?:на|в напрямку|у напрямку)\s+`
	nearby     = `\s+(?:над|біля|повз|в районі|у районі|в|у)\s+`
	rest       = `([^\n]+)`

	// "Харківщина:" style header naming the region of the lines below
	regionLabel = `([\p{L}'-]+(?:ина|ття))\s*:`
)

// DefaultRules returns the built-in catalog. Air-raid notices and all-clears
// come first so they never reach the fallback; they produce events without
// a location, which validation drops.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:     "all_clear",
			Priority: 5,
			Pattern:  regexp.MustCompile(`(?i)` + wordStart + `відбій(?:[^\p{L}]|$)`),
			Extract:  bare(model.ThreatUnknown),
		},
		{
			Name:     "air_raid_notice",
			Priority: 6,
			Pattern:  regexp.MustCompile(`(?im)^\s*повітрян\S*\s+тривог`),
			Extract:  bare(model.ThreatUnknown),
		},
		{
			Name:     "kab_colon",
			Priority: 20,
			Pattern:  regexp.MustCompile(`(?i)` + wordStart + kabWord + `[^\n]*?:\s*([^\n(]+?)\s*\(([^)\n]+)\)`),
			Extract:  cityWithRegion(model.ThreatKAB),
		},
		{
			Name:     "kab_city_region",
			Priority: 21,
			Pattern:  regexp.MustCompile(`(?i)` + wordStart + kabWord + anyWords + `\s+(?:на|по|для)\s+([^\n(]+?)\s*\(([^)\n]+)\)`),
			Extract:  cityWithRegion(model.ThreatKAB),
		},
		{
			Name:     "kab_target",
			Priority: 22,
			Pattern:  regexp.MustCompile(`(?i)` + wordStart + kabWord + anyWords + `\s+(?:на|по|для)\s+` + rest),
			Extract:  towards(model.ThreatKAB),
		},
		{
			Name:     "ballistic_target",
			Priority: 30,
			Pattern:  regexp.MustCompile(`(?i)` + wordStart + `балістик\S*` + anyWords + toward + rest),
			Extract:  towards(model.ThreatBallistic),
		},
		{
			Name:     "ballistic_threat",
			Priority: 31,
			Pattern:  regexp.MustCompile(`(?i)(?:загроза|небезпека)\s+(?:застосування\s+)?балістик\S*(?:\s+(?:для|на|по)\s+([^\n]+))?`),
			Extract:  towards(model.ThreatBallistic),
		},
		{
			Name:     "missile_target",
			Priority: 32,
			Pattern:  regexp.MustCompile(`(?i)` + wordStart + rocketWord + anyWords + toward + rest),
			Extract:  towards(model.ThreatMissile),
		},
		{
			Name:     "high_speed_target",
			Priority: 33,
			Pattern:  regexp.MustCompile(`(?i)швидкісн\S*\s+ціл\S*` + anyWords + toward + rest),
			Extract:  towards(model.ThreatMissile),
		},
		{
			Name:     "missile_arrow",
			Priority: 34,
			Pattern:  regexp.MustCompile(`(?i)` + wordStart + rocketWord + `[^\n→]*→\s*` + rest),
			Extract:  towards(model.ThreatMissile),
		},
		{
			Name:     "explosion_city_region",
			Priority: 40,
			Pattern:  regexp.MustCompile(`(?im)^([^\n(]+?)\s*\(([^)\n]+)\)[^\n]*?вибух`),
			Extract:  cityWithRegion(model.ThreatExplosion),
		},
		{
			Name:     "explosion_headline",
			Priority: 41,
			Pattern:  regexp.MustCompile(`(?im)^([^\n:]+?)(?:\s+[-–—]+\s*|\s*:\s*)вибух`),
			Extract:  towards(model.ThreatExplosion),
		},
		{
			Name:     "explosion_in",
			Priority: 42,
			Pattern:  regexp.MustCompile(`(?i)вибух\S*` + anyWords + `\s+(?:в|у)\s+` + rest),
			Extract:  towards(model.ThreatExplosion),
		},
		{
			Name:     "recon",
			Priority: 50,
			Pattern:  regexp.MustCompile(`(?i)` + wordStart + `(?:розвід\S*|орлан\S*|zala|суперкам\S*|supercam)` + anyWords + `\s+(?:на|над|біля|в районі|у районі)\s+` + rest),
			Extract:  towards(model.ThreatRecon),
		},
		{
			Name:     "launch",
			Priority: 55,
			Pattern:  regexp.MustCompile(`(?i)` + wordStart + `(?:пуск\S*|зліт\S*)` + anyWords + `\s+(?:з|із|в районі|у районі)\s+` + rest),
			Extract:  towards(model.ThreatLaunch),
		},
		{
			Name:     "uav_region_header",
			Priority: 59,
			Pattern:  regexp.MustCompile(`(?im)^` + regionLabel + `[ \t]*\n?[ \t]*(?:\d+\s*)?` + uavWords + `(?:\s+курсом)?(?:\s+(?:на|біля|повз|над))?\s*([^\n]*)`),
			Extract:  regionHeader(model.ThreatUAV),
		},
		{
			Name:     "uav_city_region",
			Priority: 60,
			Pattern:  regexp.MustCompile(`(?i)` + wordStart + uavWords + `[^\n]*?\s(?:на|біля|повз|над|в районі|у районі)\s+([^\n(]+?)\s*\(([^)\n]+)\)`),
			Extract:  cityWithRegion(model.ThreatUAV),
		},
		{
			// "БПЛА Харків (Харківська обл.)" without a preposition
			Name:     "uav_city_region_bare",
			Priority: 60,
			Pattern:  regexp.MustCompile(`(?im)^[ \t]*(?:\d+\s*)?` + uavWords + `[ \t]+((?-i:\p{Lu})[^\n(]*?)\s*\(([^)\n]+)\)`),
			Extract:  cityWithRegion(model.ThreatUAV),
		},
		{
			Name:     "uav_course",
			Priority: 61,
			Pattern:  regexp.MustCompile(`(?i)` + wordStart + uavWords + anyWords + toward + rest),
			Extract:  towards(model.ThreatUAV),
		},
		{
			Name:     "uav_nearby",
			Priority: 62,
			Pattern:  regexp.MustCompile(`(?i)` + wordStart + uavWords + anyWords + nearby + rest),
			Extract:  towards(model.ThreatUAV),
		},
		{
			Name:     "uav_arrow",
			Priority: 63,
			Pattern:  regexp.MustCompile(`(?i)` + wordStart + uavWords + `[^\n→]*→\s*` + rest),
			Extract:  towards(model.ThreatUAV),
		},
		{
			// A region header line above a counted target line
			Name:     "uav_count_region_header",
			Priority: 64,
			Pattern:  regexp.MustCompile(`(?im)^` + regionLabel + `[ \t]*\n[ \t]*\d+\s*(?:х\s*)?(?:` + uavWords + `\s+)?(?:курсом\s+)?(?:на\s+|→\s*)` + rest),
			Extract:  regionHeader(model.ThreatUAV),
		},
		{
			Name:     "uav_count",
			Priority: 64,
			Pattern:  regexp.MustCompile(`(?im)^\s*\d+\s*(?:х\s*)?(?:` + uavWords + `\s+)?(?:курсом\s+)?(?:на\s+|→\s*)` + rest),
			Extract:  towards(model.ThreatUAV),
		},
	}
}

func bare(threat model.Threat) func([]string) model.Extraction {
	return func([]string) model.Extraction {
		return model.Extraction{Threat: threat}
	}
}

// towards resolves the first capture group as the target place
func towards(threat model.Threat) func([]string) model.Extraction {
	return func(groups []string) model.Extraction {
		x := model.Extraction{Threat: threat}
		if len(groups) > 1 {
			x.City, x.Region = place(groups[1])
		}
		return x
	}
}

// cityWithRegion reads "City (Region)" captures. A parenthesized note that is
// not an oblast falls back to the city's known region.
func cityWithRegion(threat model.Threat) func([]string) model.Extraction {
	return func(groups []string) model.Extraction {
		city, region := place(groups[1])
		if normalize.IsRegionName(groups[2]) {
			region = normalize.Region(groups[2])
		}
		return model.Extraction{Threat: threat, City: city, Region: region}
	}
}

// regionHeader reads "Харківщина: БПЛА на Чугуїв" style lines
func regionHeader(threat model.Threat) func([]string) model.Extraction {
	return func(groups []string) model.Extraction {
		x := model.Extraction{Threat: threat}
		if normalize.IsRegionName(groups[1]) {
			x.Region = normalize.Region(groups[1])
		}
		city, region := place(groups[2])
		x.City = city
		if x.Region == "" {
			x.Region = region
		}
		return x
	}
}
