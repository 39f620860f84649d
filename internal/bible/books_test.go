package bible

import "testing"

func TestBookTableIsBijection(t *testing.T) {
	all := Books()
	if len(all) != 66 {
		t.Fatalf("expected 66 books, got %d", len(all))
	}
	seen := make(map[string]bool)
	for i, b := range all {
		if b.ID != BookID(i+1) {
			t.Errorf("book %q has id %d, want %d", b.Name, b.ID, i+1)
		}
		if seen[b.Name] {
			t.Errorf("duplicate book name %q", b.Name)
		}
		seen[b.Name] = true

		byID, ok := BookByID(b.ID)
		if !ok || byID.Name != b.Name {
			t.Errorf("BookByID(%d) = %+v, %v", b.ID, byID, ok)
		}
		byName, ok := BookByName(b.Name)
		if !ok || byName.ID != b.ID {
			t.Errorf("BookByName(%q) = %+v, %v", b.Name, byName, ok)
		}
		if b.Chapters < 1 {
			t.Errorf("book %q has no chapters", b.Name)
		}
	}
	if _, ok := BookByID(0); ok {
		t.Error("BookByID(0) should fail")
	}
	if _, ok := BookByID(67); ok {
		t.Error("BookByID(67) should fail")
	}
}

func TestAliasesResolveToKnownBooks(t *testing.T) {
	for alias, id := range Aliases() {
		if !id.Valid() {
			t.Errorf("alias %q points at invalid id %d", alias, id)
		}
	}
	cases := map[string]string{
		"jn":    "John",
		"GEN":   "Genesis",
		"ez":    "Ezekiel",
		"ezr":   "Ezra",
		"1 jn":  "1 John",
		"psalm": "Psalms",
		"phlm":  "Philemon",
	}
	for alias, want := range cases {
		id, ok := LookupAlias(alias)
		if !ok || id.Name() != want {
			t.Errorf("LookupAlias(%q) = %s, %v; want %s", alias, id.Name(), ok, want)
		}
	}
}

func TestKnownChapterCounts(t *testing.T) {
	cases := map[string]int{"Genesis": 50, "Psalms": 150, "Obadiah": 1, "Revelation": 22}
	for name, want := range cases {
		b, ok := BookByName(name)
		if !ok || b.Chapters != want {
			t.Errorf("%s chapters = %d, want %d", name, b.Chapters, want)
		}
	}
}
