package bible

import (
	"fmt"
	"sort"
	"strings"
)

// bookVariants lists the recognised shorthand for each canonical name.
// Canonical names are added as aliases of themselves when the table is built.
var bookVariants = map[string][]string{
	"Genesis":         {"Gen", "Ge", "Gn"},
	"Exodus":          {"Exod", "Exo", "Ex"},
	"Leviticus":       {"Lev", "Lv", "Le"},
	"Numbers":         {"Num", "Nm", "Nu"},
	"Deuteronomy":     {"Deut", "Dt", "De", "Du"},
	"Joshua":          {"Josh", "Jos", "Jo"},
	"Judges":          {"Judg", "Jdg", "Jgs"},
	"Ruth":            {"Ru"},
	"1 Samuel":        {"1 Sam", "1 Sm", "1 Sa", "1Sam", "1Sa", "1S"},
	"2 Samuel":        {"2 Sam", "2 Sm", "2 Sa", "2Sam", "2Sa", "2S"},
	"1 Kings":         {"1 Kgs", "1 Kg", "1 Ki", "1Kgs", "1Kin", "1Ki", "1K"},
	"2 Kings":         {"2 Kgs", "2 Kg", "2 Ki", "2Kgs", "2Kin", "2Ki", "2K"},
	"1 Chronicles":    {"1 Chr", "1 Ch", "1Chron", "1Chr", "1Ch"},
	"2 Chronicles":    {"2 Chr", "2 Ch", "2Chron", "2Chr", "2Ch"},
	"Ezra":            {"Ezr"},
	"Nehemiah":        {"Neh", "Ne"},
	"Esther":          {"Esth", "Est", "Es"},
	"Job":             {"Jb"},
	"Psalms":          {"Psalm", "Ps", "Pss", "Pslm", "Psa", "Psm"},
	"Proverbs":        {"Prov", "Prv", "Pr"},
	"Ecclesiastes":    {"Eccl", "Eccles", "Ec", "Qoh"},
	"Song of Solomon": {"Song of Songs", "Song", "Ss", "So", "Sg", "Cant", "Can"},
	"Isaiah":          {"Isa", "Is"},
	"Jeremiah":        {"Jer", "Je", "Jr"},
	"Lamentations":    {"Lam", "La"},
	"Ezekiel":         {"Ezek", "Ezk", "Ez"},
	"Daniel":          {"Dan", "Dn", "Da"},
	"Hosea":           {"Hos", "Ho"},
	"Joel":            {"Jl"},
	"Amos":            {"Am"},
	"Obadiah":         {"Obad", "Ob"},
	"Jonah":           {"Jnh", "Jon"},
	"Micah":           {"Mic", "Mc"},
	"Nahum":           {"Nah", "Na"},
	"Habakkuk":        {"Hab", "Hb"},
	"Zephaniah":       {"Zeph", "Zep", "Zp"},
	"Haggai":          {"Hag", "Hg"},
	"Zechariah":       {"Zech", "Zec", "Zc"},
	"Malachi":         {"Mal", "Ml"},
	"Matthew":         {"Matt", "Mt"},
	"Mark":            {"Mrk", "Mar", "Mk", "Mr"},
	"Luke":            {"Lk"},
	"John":            {"Jhn", "Jn", "Joh"},
	"Acts":            {"Act", "Ac"},
	"Romans":          {"Rom", "Ro", "Rm"},
	"1 Corinthians":   {"1 Cor", "1 Co", "1Cor", "1Co"},
	"2 Corinthians":   {"2 Cor", "2 Co", "2Cor", "2Co"},
	"Galatians":       {"Gal", "Ga"},
	"Ephesians":       {"Eph", "Ephes"},
	"Philippians":     {"Phil", "Php", "Pp"},
	"Colossians":      {"Col", "Co"},
	"1 Thessalonians": {"1 Thess", "1 Thes", "1 Th", "1Thess", "1Thes", "1Th"},
	"2 Thessalonians": {"2 Thess", "2 Thes", "2 Th", "2Thess", "2Thes", "2Th"},
	"1 Timothy":       {"1 Tim", "1 Tm", "1 Ti", "1Tim", "1T"},
	"2 Timothy":       {"2 Tim", "2 Tm", "2 Ti", "2Tim", "2T"},
	"Titus":           {"Tit", "Ti"},
	"Philemon":        {"Phlm", "Phm"},
	"Hebrews":         {"Heb", "He"},
	"James":           {"Jas", "Ja"},
	"1 Peter":         {"1 Pet", "1 Pt", "1Pet", "1P"},
	"2 Peter":         {"2 Pet", "2 Pt", "2Pet", "2P"},
	"1 John":          {"1 Jn", "1 Jo", "1J", "1John", "1Jn", "1Jo"},
	"2 John":          {"2 Jn", "2 Jo", "2J", "2John", "2Jn"},
	"3 John":          {"3 Jn", "3 Jo", "3J", "3John", "3Jn"},
	"Jude":            {"Ju"},
	"Revelation":      {"Rev", "Re", "Rv", "Revelations"},
}

// aliases maps every lowercase alias (canonical names included) to its book.
var aliases map[string]BookID

// aliasKeys is the sorted key set of aliases; fuzzy matching walks it in order.
var aliasKeys []string

func init() {
	aliases = make(map[string]BookID, 400)
	add := func(alias string, id BookID) {
		key := strings.ToLower(alias)
		if prev, ok := aliases[key]; ok && prev != id {
			panic(fmt.Sprintf("bible: alias %q maps to both %s and %s", key, prev.Name(), id.Name()))
		}
		aliases[key] = id
	}
	for _, b := range books {
		add(b.Name, b.ID)
	}
	for name, variants := range bookVariants {
		b, ok := BookByName(name)
		if !ok {
			panic(fmt.Sprintf("bible: alias table names unknown book %q", name))
		}
		for _, v := range variants {
			add(v, b.ID)
		}
	}
	aliasKeys = make([]string, 0, len(aliases))
	for k := range aliases {
		aliasKeys = append(aliasKeys, k)
	}
	sort.Strings(aliasKeys)
}

// LookupAlias resolves an exact alias or canonical name, ignoring case.
func LookupAlias(alias string) (BookID, bool) {
	id, ok := aliases[strings.ToLower(strings.TrimSpace(alias))]
	return id, ok
}

// Aliases returns a copy of the alias table.
func Aliases() map[string]BookID {
	out := make(map[string]BookID, len(aliases))
	for k, v := range aliases {
		out[k] = v
	}
	return out
}
