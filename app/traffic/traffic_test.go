package traffic

import "testing"

func TestComposeSingleFilter(t *testing.T) {
	got := Compose([]string{"any(dns.content_category[*] in {2 8 67})"})
	want := "not(any(dns.content_category[*] in {2 8 67}))"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestComposeMergesDuplicateIDs(t *testing.T) {
	got := Compose([]string{
		"any(dns.content_category[*] in {2 8})",
		"any(dns.content_category[*] in {8 67})",
	})
	want := "not(any(dns.content_category[*] in {2 8 67}))"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestComposeMixedClauseKinds(t *testing.T) {
	got := Compose([]string{
		"any(app.ids[*] in {901})",
		"any(dns.content_category[*] in {2}) or any(app.type.ids[*] in {25})",
		"any(app.type.ids[*] in {7 25})",
	})
	want := "not(any(dns.content_category[*] in {2}) or any(app.type.ids[*] in {7 25}) or any(app.ids[*] in {901}))"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestComposeEmpty(t *testing.T) {
	if got := Compose(nil); got != "" {
		t.Errorf("Compose(nil) = %q, want empty", got)
	}
	if got := Compose([]string{"", ""}); got != "" {
		t.Errorf("Compose of empty filters = %q, want empty", got)
	}
}

func TestComposeOrderIndependent(t *testing.T) {
	a := Compose([]string{
		"any(app.type.ids[*] in {25})",
		"any(dns.content_category[*] in {67 2})",
	})
	b := Compose([]string{
		"any(dns.content_category[*] in {2 67})",
		"any(app.type.ids[*] in {25})",
	})
	if a != b {
		t.Errorf("composition depends on input order: %q vs %q", a, b)
	}
}

func TestParseIgnoresUnknownSelectors(t *testing.T) {
	e := Parse("any(dns.fqdn[*] in {1 2}) or any(dns.content_category[*] in {5})")
	if len(e.Categories) != 1 || len(e.AppTypes) != 0 || len(e.AppIDs) != 0 {
		t.Fatalf("unexpected sets: %+v", e)
	}
	if _, ok := e.Categories[5]; !ok {
		t.Error("category 5 not parsed")
	}
}

func TestParseIgnoresNonIntegerTokens(t *testing.T) {
	e := Parse("any(dns.content_category[*] in {2 junk 8})")
	if got := e.Categories.Sorted(); len(got) != 2 || got[0] != 2 || got[1] != 8 {
		t.Errorf("got %v, want [2 8]", got)
	}
}

func TestParseMalformedInput(t *testing.T) {
	for _, s := range []string{
		"",
		"not an expression",
		"any(dns.content_category[*] in {2",
		"any(dns.content_category",
	} {
		if e := Parse(s); !e.IsEmpty() {
			t.Errorf("Parse(%q) not empty: %+v", s, e)
		}
	}
}

func TestStringCanonicalOrder(t *testing.T) {
	e := NewExpression()
	e.AppIDs.Add(901)
	e.Categories.Add(67)
	e.Categories.Add(2)
	e.AppTypes.Add(25)
	want := "any(dns.content_category[*] in {2 67}) or any(app.type.ids[*] in {25}) or any(app.ids[*] in {901})"
	if got := e.String(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRoundTrip(t *testing.T) {
	in := "any(dns.content_category[*] in {2 8 67 99 125 133})"
	if got := Parse(in).String(); got != in {
		t.Errorf("round trip changed expression: %q -> %q", in, got)
	}
}
