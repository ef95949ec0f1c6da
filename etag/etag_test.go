package etag

import "testing"

func TestEntityTag_String(t *testing.T) {
	tests := []struct {
		tag  EntityTag
		want string
	}{
		{New("abc"), `"abc"`},
		{NewWeak("abc"), `W/"abc"`},
		{New(""), `""`},
		{New(`a"b`), `"a\"b"`},
		{NewWeak(`c:\tmp`), `W/"c:\\tmp"`},
	}
	for _, tt := range tests {
		if got := tt.tag.String(); got != tt.want {
			t.Errorf("%#v.String() = %s, want %s", tt.tag, got, tt.want)
		}
	}
}

func TestComparers(t *testing.T) {
	tests := []struct {
		name   string
		a, b   EntityTag
		strong bool
		weak   bool
	}{
		{"both strong equal", New("1"), New("1"), true, true},
		{"both strong different", New("1"), New("2"), false, false},
		{"weak and strong equal value", NewWeak("1"), New("1"), false, true},
		{"both weak equal", NewWeak("1"), NewWeak("1"), false, true},
		{"both weak different", NewWeak("1"), NewWeak("2"), false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Strong.Equal(tt.a, tt.b); got != tt.strong {
				t.Errorf("Strong.Equal = %v, want %v", got, tt.strong)
			}
			if got := Weak.Equal(tt.a, tt.b); got != tt.weak {
				t.Errorf("Weak.Equal = %v, want %v", got, tt.weak)
			}
			if Weak.Equal(tt.a, tt.b) != Weak.Equal(tt.b, tt.a) {
				t.Error("weak comparison must be symmetric")
			}
		})
	}
}

func TestAsWeak(t *testing.T) {
	strong := New("v")
	weak := strong.AsWeak()
	if strong.Weak {
		t.Error("AsWeak must not modify the receiver")
	}
	if !weak.Weak || weak.Value != "v" {
		t.Errorf("unexpected weak tag %#v", weak)
	}
}
