package normalize

import (
	"strings"
	"unicode"
)

var settlementPrefixes = []string{"м.", "м ", "с.", "смт.", "смт ", "селище ", "село ", "місто ", "н.п.", "нп "}

// caseForms holds inflected city names whose nominative is not derivable by suffix rules
var caseForms = map[string]string{
	"києва":        "Київ",
	"києві":        "Київ",
	"харкова":      "Харків",
	"харкові":      "Харків",
	"львова":       "Львів",
	"дніпра":       "Дніпро",
	"чернігова":    "Чернігів",
	"миколаєва":    "Миколаїв",
	"миколаєві":    "Миколаїв",
	"херсона":      "Херсон",
	"ізюма":        "Ізюм",
	"конотопа":     "Конотоп",
	"конотопу":     "Конотоп",
	"павлограда":   "Павлоград",
	"павлограду":   "Павлоград",
	"кременчука":   "Кременчук",
	"кременчуку":   "Кременчук",
	"миргорода":    "Миргород",
	"миргороду":    "Миргород",
	"глухова":      "Глухів",
	"нікополя":     "Нікополь",
	"умані":        "Умань",
	"сум":          "Суми",
	"сумах":        "Суми",
	"черкас":       "Черкаси",
	"лубен":        "Лубни",
	"броварів":     "Бровари",
	"прилук":       "Прилуки",
	"чернівців":    "Чернівці",
	"кривого рогу": "Кривий Ріг",
	"кривому розі": "Кривий Ріг",
	"запоріжжі":    "Запоріжжя",
	"житомира":     "Житомир",
	"ужгорода":     "Ужгород",
	"одесі":        "Одеса",
	"полтаві":      "Полтава",
	"полтави":      "Полтава",
	"одеси":        "Одеса",
	"вінниці":      "Вінниця",
	"чугуєва":      "Чугуїв",
	"чугуєві":      "Чугуїв",
	"києвом":       "Київ",
	"харковом":     "Харків",
	"львовом":      "Львів",
	"дніпром":      "Дніпро",
	"черніговом":   "Чернігів",
	"миколаєвом":   "Миколаїв",
	"чугуєвом":     "Чугуїв",
	"глуховом":     "Глухів",
	"борисполем":   "Бориспіль",
	"запоріжжям":   "Запоріжжя",
	"сумами":       "Суми",
	"кривим рогом": "Кривий Ріг",
}

// commonNouns follow "над" in hedged reports and must keep their form so
// skip words still match them
var commonNouns = map[string]bool{
	"містом":  true,
	"селом":   true,
	"селищем": true,
	"районом": true,
	"морем":   true,
}

// City returns the canonical nominative, title-cased form of a settlement name.
// Settlement-type prefixes and surrounding punctuation are removed.
func City(s string) string {
	s = trimPlace(s)
	lower := strings.ToLower(s)
	for _, prefix := range settlementPrefixes {
		if strings.HasPrefix(lower, prefix) {
			s = strings.TrimSpace(s[len(prefix):])
			lower = strings.ToLower(s)
			break
		}
	}
	if s == "" {
		return ""
	}

	key := Key(s)
	if _, ok := cityRegions[key]; ok {
		return titleCase(key)
	}
	if commonNouns[key] {
		return titleCase(key)
	}
	if nominative, ok := caseForms[key]; ok {
		return nominative
	}

	words := strings.Fields(key)
	for i, w := range words {
		words[i] = nominativeWord(w, i < len(words)-1)
	}
	return titleCase(strings.Join(words, " "))
}

// nominativeWord undoes the accusative, genitive and instrumental endings
// that follow "на", "біля", "над" and "в районі" in alert messages.
func nominativeWord(w string, adjective bool) string {
	if len([]rune(w)) < 4 {
		return w
	}
	switch {
	case adjective && strings.HasSuffix(w, "ого"):
		return strings.TrimSuffix(w, "ого") + "ий"
	case adjective && strings.HasSuffix(w, "ої"):
		return strings.TrimSuffix(w, "ої") + "а"
	case adjective && strings.HasSuffix(w, "им"):
		return strings.TrimSuffix(w, "им") + "ий"
	case strings.HasSuffix(w, "ою"):
		return strings.TrimSuffix(w, "ою") + "а"
	case strings.HasSuffix(w, "ею"):
		return strings.TrimSuffix(w, "ею") + "я"
	case strings.HasSuffix(w, "ами"):
		return strings.TrimSuffix(w, "ами") + "и"
	case strings.HasSuffix(w, "ями"):
		return strings.TrimSuffix(w, "ями") + "і"
	case strings.HasSuffix(w, "ом") && !adjective:
		return instrumentalStem(strings.TrimSuffix(w, "ом"), true)
	case strings.HasSuffix(w, "ем") && !adjective:
		return instrumentalStem(strings.TrimSuffix(w, "ем"), false)
	case strings.HasSuffix(w, "ки"):
		return strings.TrimSuffix(w, "ки") + "ка"
	case strings.HasSuffix(w, "ці") && !adjective:
		return strings.TrimSuffix(w, "ці") + "ця"
	case strings.HasSuffix(w, "у"):
		return strings.TrimSuffix(w, "у") + "а"
	case strings.HasSuffix(w, "ю"):
		return strings.TrimSuffix(w, "ю") + "я"
	}
	return w
}

// instrumentalStem resolves a stem left by "-ом"/"-ем" against the gazetteer.
// Hard stems ("Конотопом") are accepted as they are; soft stems are kept
// only when the gazetteer knows them, otherwise the word stays inflected.
func instrumentalStem(stem string, hard bool) string {
	for _, candidate := range []string{stem, stem + "ь"} {
		if _, ok := cityRegions[candidate]; ok {
			return candidate
		}
	}
	if hard {
		return stem
	}
	return stem + "ем"
}

// Region returns the canonical "<Adjective> обл." form of an oblast reference,
// accepting colloquial names ("Харківщина") and inflected forms. Unknown
// references are returned trimmed.
func Region(s string) string {
	s = trimPlace(s)
	if s == "" {
		return ""
	}
	if r, ok := lookupRegion(s); ok {
		return r.name
	}
	return s
}

func trimPlace(s string) string {
	s = strings.TrimSpace(s)
	return strings.TrimFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// titleCase upper-cases the first letter of every word and hyphenated part
func titleCase(s string) string {
	runes := []rune(s)
	upper := true
	for i, r := range runes {
		if upper && unicode.IsLetter(r) {
			runes[i] = unicode.ToUpper(r)
		}
		upper = r == ' ' || r == '-'
	}
	return string(runes)
}
