package normalize

import "strings"

// regionInfo describes one oblast
type regionInfo struct {
	name      string   // Canonical form, "<Adjective> обл."
	display   string   // Latin name used in outbound notifications
	adjective string   // Lowercase adjective stem key, e.g. "полтавська"
	aliases   []string // Colloquial names in nominative case
}

var regions = []regionInfo{
	{"Вінницька обл.", "Vinnytsia", "вінницька", []string{"вінниччина"}},
	{"Волинська обл.", "Volyn", "волинська", []string{"волинь"}},
	{"Дніпропетровська обл.", "Dnipropetrovsk", "дніпропетровська", []string{"дніпропетровщина", "дніпровщина"}},
	{"Донецька обл.", "Donetsk", "донецька", []string{"донеччина", "донбас"}},
	{"Житомирська обл.", "Zhytomyr", "житомирська", []string{"житомирщина"}},
	{"Закарпатська обл.", "Zakarpattia", "закарпатська", []string{"закарпаття"}},
	{"Запорізька обл.", "Zaporizhzhia", "запорізька", []string{"запоріжчина"}},
	{"Івано-Франківська обл.", "Ivano-Frankivsk", "івано-франківська", []string{"івано-франківщина", "прикарпаття"}},
	{"Київська обл.", "Kyiv", "київська", []string{"київщина"}},
	{"Кіровоградська обл.", "Kirovohrad", "кіровоградська", []string{"кіровоградщина"}},
	{"Луганська обл.", "Luhansk", "луганська", []string{"луганщина"}},
	{"Львівська обл.", "Lviv", "львівська", []string{"львівщина"}},
	{"Миколаївська обл.", "Mykolaiv", "миколаївська", []string{"миколаївщина"}},
	{"Одеська обл.", "Odesa", "одеська", []string{"одещина"}},
	{"Полтавська обл.", "Poltava", "полтавська", []string{"полтавщина"}},
	{"Рівненська обл.", "Rivne", "рівненська", []string{"рівненщина"}},
	{"Сумська обл.", "Sumy", "сумська", []string{"сумщина"}},
	{"Тернопільська обл.", "Ternopil", "тернопільська", []string{"тернопільщина"}},
	{"Харківська обл.", "Kharkiv", "харківська", []string{"харківщина"}},
	{"Херсонська обл.", "Kherson", "херсонська", []string{"херсонщина"}},
	{"Хмельницька обл.", "Khmelnytskyi", "хмельницька", []string{"хмельниччина"}},
	{"Черкаська обл.", "Cherkasy", "черкаська", []string{"черкащина"}},
	{"Чернівецька обл.", "Chernivtsi", "чернівецька", []string{"буковина"}},
	{"Чернігівська обл.", "Chernihiv", "чернігівська", []string{"чернігівщина"}},
}

// cityRegions maps major cities and frequently reported towns to their oblast
var cityRegions = map[string]string{
	"київ":             "Київська обл.",
	"бориспіль":        "Київська обл.",
	"біла церква":      "Київська обл.",
	"бровари":          "Київська обл.",
	"фастів":           "Київська обл.",
	"вінниця":          "Вінницька обл.",
	"луцьк":            "Волинська обл.",
	"дніпро":           "Дніпропетровська обл.",
	"кривий ріг":       "Дніпропетровська обл.",
	"павлоград":        "Дніпропетровська обл.",
	"нікополь":         "Дніпропетровська обл.",
	"марганець":        "Дніпропетровська обл.",
	"кам'янське":       "Дніпропетровська обл.",
	"краматорськ":      "Донецька обл.",
	"слов'янськ":       "Донецька обл.",
	"покровськ":        "Донецька обл.",
	"житомир":          "Житомирська обл.",
	"ужгород":          "Закарпатська обл.",
	"запоріжжя":        "Запорізька обл.",
	"івано-франківськ": "Івано-Франківська обл.",
	"кропивницький":    "Кіровоградська обл.",
	"олександрія":      "Кіровоградська обл.",
	"львів":            "Львівська обл.",
	"миколаїв":         "Миколаївська обл.",
	"вознесенськ":      "Миколаївська обл.",
	"одеса":            "Одеська обл.",
	"ізмаїл":           "Одеська обл.",
	"полтава":          "Полтавська обл.",
	"кременчук":        "Полтавська обл.",
	"миргород":         "Полтавська обл.",
	"лубни":            "Полтавська обл.",
	"рівне":            "Рівненська обл.",
	"суми":             "Сумська обл.",
	"конотоп":          "Сумська обл.",
	"шостка":           "Сумська обл.",
	"глухів":           "Сумська обл.",
	"охтирка":          "Сумська обл.",
	"тернопіль":        "Тернопільська обл.",
	"харків":           "Харківська обл.",
	"чугуїв":           "Харківська обл.",
	"ізюм":             "Харківська обл.",
	"куп'янськ":        "Харківська обл.",
	"лозова":           "Харківська обл.",
	"херсон":           "Херсонська обл.",
	"хмельницький":     "Хмельницька обл.",
	"старокостянтинів": "Хмельницька обл.",
	"черкаси":          "Черкаська обл.",
	"умань":            "Черкаська обл.",
	"сміла":            "Черкаська обл.",
	"чернівці":         "Чернівецька обл.",
	"чернігів":         "Чернігівська обл.",
	"ніжин":            "Чернігівська обл.",
	"прилуки":          "Чернігівська обл.",
}

var (
	regionByName  = map[string]*regionInfo{}
	regionByAlias = map[string]*regionInfo{}
)

func init() {
	for i := range regions {
		r := &regions[i]
		regionByName[Key(r.name)] = r
		regionByAlias[r.adjective] = r
		for _, alias := range r.aliases {
			regionByAlias[alias] = r
			for _, form := range inflectAlias(alias) {
				regionByAlias[form] = r
			}
		}
	}
}

// inflectAlias returns the oblique case forms of a colloquial region name
// ("харківщина" -> "харківщини", "харківщині", "харківщину", "харківщиною").
func inflectAlias(alias string) []string {
	switch {
	case strings.HasSuffix(alias, "а"):
		stem := strings.TrimSuffix(alias, "а")
		return []string{stem + "и", stem + "і", stem + "у", stem + "ою"}
	case strings.HasSuffix(alias, "я"):
		stem := strings.TrimSuffix(alias, "я")
		return []string{stem + "і", stem + "ю", stem + "ям"}
	case strings.HasSuffix(alias, "ь"):
		stem := strings.TrimSuffix(alias, "ь")
		return []string{stem + "і", stem + "ню"}
	case strings.HasSuffix(alias, "с"):
		return []string{alias + "і", alias + "у"}
	}
	return nil
}

// RegionOf returns the oblast a known city belongs to
func RegionOf(city string) (string, bool) {
	region, ok := cityRegions[Key(city)]
	return region, ok
}

// IsRegionName reports whether s names an oblast rather than a settlement
func IsRegionName(s string) bool {
	_, ok := lookupRegion(s)
	return ok
}

// RegionDisplay returns the Latin display name of an oblast.
// Unknown regions are shown as given without the "обл." suffix.
func RegionDisplay(region string) string {
	if r, ok := lookupRegion(region); ok {
		return r.display
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(region), "обл."))
}

func lookupRegion(s string) (*regionInfo, bool) {
	key := Key(s)
	if key == "" {
		return nil, false
	}
	if r, ok := regionByName[key]; ok {
		return r, true
	}
	if r, ok := regionByAlias[key]; ok {
		return r, true
	}
	adjective := adjectiveStem(key)
	if r, ok := regionByAlias[adjective]; ok {
		return r, true
	}
	return nil, false
}

var regionSuffixes = []string{" області", " область", " обл.", " обл", " обл-ть"}

// adjectiveStem reduces "полтавській області" or "полтавської обл" to "полтавська"
func adjectiveStem(key string) string {
	for _, suffix := range regionSuffixes {
		key = strings.TrimSuffix(key, suffix)
	}
	key = strings.TrimSpace(key)
	for _, ending := range []string{"ській", "ської", "ську", "ською"} {
		if strings.HasSuffix(key, ending) {
			return strings.TrimSuffix(key, ending) + "ська"
		}
	}
	for _, ending := range []string{"цькій", "цької", "цьку", "цькою"} {
		if strings.HasSuffix(key, ending) {
			return strings.TrimSuffix(key, ending) + "цька"
		}
	}
	for _, ending := range []string{"зькій", "зької", "зьку", "зькою"} {
		if strings.HasSuffix(key, ending) {
			return strings.TrimSuffix(key, ending) + "зька"
		}
	}
	return key
}
