package scanner

import "testing"

func TestStripComment(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`x = 1  # trailing`, `x = 1  `},
		{`# whole line`, ``},
		{`s = "a # b"`, `s = "a # b"`},
		{`s = 'a # b'  # real`, `s = 'a # b'  `},
		{`no comment here`, `no comment here`},
		{`url = "http://x#frag"`, `url = "http://x#frag"`},
	}
	for _, tt := range tests {
		if got := StripComment(tt.input); got != tt.want {
			t.Errorf("StripComment(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestMatchBrace(t *testing.T) {
	tests := []struct {
		input string
		open  int
		want  int
	}{
		{`{x}`, 0, 2},
		{`{a: {b: 1}}`, 0, 10},
		{`{"}"}`, 0, 4},
		{`{'{'}`, 0, 4},
		{`{unclosed`, 0, -1},
		{`pre {x} post`, 4, 6},
	}
	for _, tt := range tests {
		if got := MatchBrace(tt.input, tt.open); got != tt.want {
			t.Errorf("MatchBrace(%q, %d) = %d, want %d", tt.input, tt.open, got, tt.want)
		}
	}
}

func TestFindTopLevel(t *testing.T) {
	colon := func(ch byte, pos int, src string) bool { return ch == ':' }

	tests := []struct {
		name  string
		input string
		want  int
	}{
		{"plain", `for x in y:`, 10},
		{"inside brackets skipped", `d[a:b] = c: rest`, 10},
		{"inside string skipped", `x = "a:b":`, 9},
		{"absent", `x = 1`, -1},
	}
	for _, tt := range tests {
		if got := FindTopLevel(tt.input, colon); got != tt.want {
			t.Errorf("%s: FindTopLevel(%q) = %d, want %d", tt.name, tt.input, got, tt.want)
		}
	}
}

func TestInString(t *testing.T) {
	sc := New(`a"b\"c"d`)
	var inside []bool
	for _, ok := sc.Next(); ok; _, ok = sc.Next() {
		inside = append(inside, sc.InString())
	}
	want := []bool{false, true, true, true, true, true, true, false}
	if len(inside) != len(want) {
		t.Fatalf("scanned %d bytes, want %d", len(inside), len(want))
	}
	for i := range want {
		if inside[i] != want[i] {
			t.Errorf("byte %d: InString = %v, want %v", i, inside[i], want[i])
		}
	}
}

func TestIsInsideString(t *testing.T) {
	src := `x = "hi" + y`
	if IsInsideString(src, 0) {
		t.Error("offset 0 should be outside")
	}
	if !IsInsideString(src, 6) {
		t.Error("offset 6 should be inside")
	}
	if IsInsideString(src, 11) {
		t.Error("offset 11 should be outside")
	}
}
