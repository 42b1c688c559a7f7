package channel

import "testing"

func TestLabelString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		label Label
		want  string
	}{
		{name: "group zero", label: Group(0), want: "0"},
		{name: "group twelve", label: Group(12), want: "12"},
		{name: "noise", label: Noise(), want: "-1"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.label.String(); got != tc.want {
				t.Fatalf("String() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestLabelIndex(t *testing.T) {
	t.Parallel()

	if idx, ok := Group(3).Index(); !ok || idx != 3 {
		t.Fatalf("Group(3).Index() = %d, %v; want 3, true", idx, ok)
	}
	if _, ok := Noise().Index(); ok {
		t.Fatal("Noise().Index() should report no index")
	}
	if !Noise().IsNoise() {
		t.Fatal("Noise().IsNoise() = false")
	}
	if Group(0).IsNoise() {
		t.Fatal("Group(0).IsNoise() = true")
	}
}

func TestParseLabel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		want    Label
		wantErr bool
	}{
		{input: "0", want: Group(0)},
		{input: "7", want: Group(7)},
		{input: "-1", want: Noise()},
		{input: "-2", wantErr: true},
		{input: "abc", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.input, func(t *testing.T) {
			got, err := ParseLabel(tc.input)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("ParseLabel(%q) should have failed", tc.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseLabel(%q) error: %v", tc.input, err)
			}
			if got != tc.want {
				t.Fatalf("ParseLabel(%q) = %v, want %v", tc.input, got, tc.want)
			}
		})
	}
}

func TestGroupPanicsOnNegativeIndex(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Fatal("Group(-1) should panic")
		}
	}()
	Group(-1)
}
