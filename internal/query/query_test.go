package query

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// fakeSource backs a record with a plain map; keys absent from the map have
// no value.
type fakeSource map[string]Value

func (f fakeSource) Field(name string) (Value, bool) {
	v, ok := f[name]
	return v, ok
}

func num(n float64) Value { return Value{Type: FieldNumber, Num: n} }
func str(s string) Value  { return Value{Type: FieldString, Str: s} }

func date(s string) Value {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return Value{Type: FieldDate, Date: t}
}

// fixture mirrors a small slice of the dataset: mixed regions, mixed Vs30,
// one record with no estimate at all.
var fixture = []struct {
	name string
	src  fakeSource
}{
	{"BH_1", fakeSource{"record_name": str("BH_1"), "region": str("Canterbury"), "vs30": num(90), "investigation_date": date("2012-03-14")}},
	{"CPT_2", fakeSource{"record_name": str("CPT_2"), "region": str("Canterbury"), "vs30": num(250), "investigation_date": date("2015-08-01")}},
	{"CPT_3", fakeSource{"record_name": str("CPT_3"), "region": str("Wellington"), "vs30": num(80), "investigation_date": date("2011-11-30")}},
	{"BH_4", fakeSource{"record_name": str("BH_4"), "region": str("Canterbury"), "vs30": num(95), "investigation_date": date("2018-01-02")}},
	{"CPT_5", fakeSource{"record_name": str("CPT_5"), "region": str("Otago")}},
}

func matchNames(t *testing.T, q string) []string {
	t.Helper()
	expr, err := Parse(q)
	if err != nil {
		t.Fatalf("Parse(%q): %v", q, err)
	}
	var names []string
	for _, rec := range fixture {
		if expr == nil || expr.Match(rec.src) {
			names = append(names, rec.name)
		}
	}
	return names
}

func TestFilterSubsetPreservesOrder(t *testing.T) {
	got := matchNames(t, `(vs30 < 100) & (region == "Canterbury")`)
	want := []string{"BH_1", "BH_4"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("filter result mismatch (-want +got):\n%s", diff)
	}
}

func TestFilterExpressions(t *testing.T) {
	tests := []struct {
		q    string
		want []string
	}{
		{``, []string{"BH_1", "CPT_2", "CPT_3", "BH_4", "CPT_5"}},
		{`   `, []string{"BH_1", "CPT_2", "CPT_3", "BH_4", "CPT_5"}},
		{`vs30 < 100`, []string{"BH_1", "CPT_3", "BH_4"}},
		{`100 > vs30`, []string{"BH_1", "CPT_3", "BH_4"}},
		{`region != "Canterbury"`, []string{"CPT_3", "CPT_5"}},
		{`vs30 < 85 | vs30 > 200`, []string{"CPT_2", "CPT_3"}},
		{`region == "Canterbury" & vs30 < 100 | region == "Wellington"`, []string{"BH_1", "CPT_3", "BH_4"}},
		{`region == "Canterbury" & (vs30 < 100 | region == "Wellington")`, []string{"BH_1", "BH_4"}},
		{`record_name == 'BH_4'`, []string{"BH_4"}},
		{`vs30 >= 250`, []string{"CPT_2"}},
		// CPT_5 has no vs30 value, so neither side of the split matches it.
		{`vs30 < 1000`, []string{"BH_1", "CPT_2", "CPT_3", "BH_4"}},
		{`vs30 >= 1000`, nil},
	}
	for _, tt := range tests {
		if got := matchNames(t, tt.q); !cmp.Equal(tt.want, got) {
			t.Errorf("query %q matched %v, want %v", tt.q, got, tt.want)
		}
	}
}

func TestDateComparison(t *testing.T) {
	// Dates compare as calendar instants, not as strings.
	got := matchNames(t, `investigation_date > "2012-12-31"`)
	want := []string{"CPT_2", "BH_4"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("date filter mismatch (-want +got):\n%s", diff)
	}

	got = matchNames(t, `investigation_date == "2011-11-30"`)
	if diff := cmp.Diff([]string{"CPT_3"}, got); diff != "" {
		t.Errorf("date equality mismatch (-want +got):\n%s", diff)
	}
}

func TestParseRejections(t *testing.T) {
	tests := []struct {
		q       string
		wantMsg string
	}{
		{`__import__('os')`, `expected comparison operator`},
		{`os.system("rm")`, `expected comparison operator`},
		{`vs30 < 100 & (region == "Canterbury"`, `missing closing parenthesis`},
		{`vs30 < 100)`, `unexpected ")" after expression`},
		{`notafield == 3`, `unknown field`},
		{`vs30 == "high"`, `is numeric`},
		{`region == Canterbury`, `comparisons between two fields`},
		{`region = "Canterbury"`, `did you mean`},
		{`region == "Canterbury`, `unterminated string`},
		{`vs30 < region`, `comparisons between two fields`},
		{`investigation_date > "yesterday"`, `invalid date`},
		{`investigation_date > 2012`, `use a quoted YYYY-MM-DD`},
		{`vs30 <`, `comparison must have a field`},
		{`& vs30 < 100`, `expected comparison operator`},
	}
	for _, tt := range tests {
		_, err := Parse(tt.q)
		if err == nil {
			t.Errorf("Parse(%q): expected error containing %q, got nil", tt.q, tt.wantMsg)
			continue
		}
		if !containsSubstring(err.Msg, tt.wantMsg) {
			t.Errorf("Parse(%q) error = %q, want substring %q", tt.q, err.Msg, tt.wantMsg)
		}
	}
}

func containsSubstring(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}

func TestValidateIdempotent(t *testing.T) {
	queries := []string{
		`vs30 < 100`,
		`__import__('os')`,
		``,
		`region == "Canterbury" & (vs30 < 100)`,
	}
	for _, q := range queries {
		first := Validate(q)
		second := Validate(q)
		if (first == nil) != (second == nil) {
			t.Fatalf("Validate(%q) not idempotent: %v then %v", q, first, second)
		}
		if first != nil && (first.Msg != second.Msg || first.Pos != second.Pos) {
			t.Errorf("Validate(%q) drifted: %v then %v", q, first, second)
		}
	}
}

func TestValidationErrorPosition(t *testing.T) {
	_, err := Parse(`vs30 < 100 & nope == 3`)
	if err == nil {
		t.Fatal("Parse: want error, got nil")
	}
	if err.Pos != 13 {
		t.Errorf("error Pos = %d, want 13 (offset of the unknown field)", err.Pos)
	}
}

func TestFieldsWhitelistClosed(t *testing.T) {
	for _, f := range Fields() {
		expr, err := Parse(f.Name + ` != ` + literalFor(f.Type))
		if err != nil {
			t.Errorf("whitelisted field %q failed to parse: %v", f.Name, err)
			continue
		}
		if expr == nil {
			t.Errorf("whitelisted field %q produced a nil expression", f.Name)
		}
	}
}

func literalFor(t FieldType) string {
	switch t {
	case FieldString:
		return `"x"`
	case FieldDate:
		return `"2020-01-01"`
	}
	return `0`
}
