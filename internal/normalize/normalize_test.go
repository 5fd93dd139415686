package normalize

import "testing"

func TestNormalizeCanonicalOrder(t *testing.T) {
	tests := []struct {
		description string
		in          string
		want        string
	}{
		{
			description: "plain text is untouched",
			in:          "hello",
			want:        "hello",
		},
		{
			description: "wrappers are reordered",
			in:          `<u><i><b>x</b></i></u>`,
			want:        `<strong><em><u>x</u></em></strong>`,
		},
		{
			description: "styled spans become tags",
			in:          `<span style="font-weight: bold; text-decoration: line-through">x</span>`,
			want:        `<strong><s>x</s></strong>`,
		},
		{
			description: "colors go innermost and are normalised",
			in:          `<span style="background-color: rgb(255, 255, 0)"><font color="#F00"><b>x</b></font></span>`,
			want:        `<strong><span style="color: #ff0000;"><span style="background-color: #ffff00;">x</span></span></strong>`,
		},
		{
			description: "black and transparent are dropped",
			in:          `<span style="color: rgb(0, 0, 0); background-color: transparent">x</span>`,
			want:        `x`,
		},
		{
			description: "closest declaration wins",
			in:          `<span style="color: #00ff00"><span style="color: #0000ff">x</span></span>`,
			want:        `<span style="color: #0000ff;">x</span>`,
		},
		{
			description: "black inner color does not hide an outer one",
			in:          `<span style="color: #00ff00"><span style="color: black">x</span></span>`,
			want:        `<span style="color: #00ff00;">x</span>`,
		},
		{
			description: "inner normal weight overrides outer bold",
			in:          `<b>a<span style="font-weight: normal">b</span></b>`,
			want:        `<strong>a</strong>b`,
		},
		{
			description: "empty wrappers disappear",
			in:          `<b></b><i>a</i><span></span>b`,
			want:        `<em>a</em>b`,
		},
		{
			description: "decorations accumulate",
			in:          `<u><s>x</s></u>`,
			want:        `<u><s>x</s></u>`,
		},
		{
			description: "text is escaped",
			in:          `<b>a &lt; b</b>`,
			want:        `<strong>a &lt; b</strong>`,
		},
	}

	n := New(nil)
	for _, tc := range tests {
		got, err := n.Normalize(tc.in)
		if err != nil {
			t.Fatalf("(%s) Normalize: %v", tc.description, err)
		}
		if got != tc.want {
			t.Errorf("(%s) Normalize(%q) = %q, want %q", tc.description, tc.in, got, tc.want)
		}
	}
}

func TestNormalizeWithoutTextIsUnchanged(t *testing.T) {
	in := `<img src="a.png"><br>`
	got, err := New(nil).Normalize(in)
	if err != nil {
		t.Fatal(err)
	}
	if got != in {
		t.Errorf("Normalize(%q) = %q, want input unchanged", in, got)
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	inputs := []string{
		`plain`,
		`<b><i>bold italic</i></b> and <u>under</u>`,
		`<span style="color: rgb(10, 20, 30)"><s>a</s>b</span><em style="background: #abc">c</em>`,
		`<strong style="font-weight: 400">x</strong><sub>y</sub>`,
		`<a href="#"><b>link</b></a>`,
	}
	n := New(nil)
	for _, in := range inputs {
		once, err := n.Normalize(in)
		if err != nil {
			t.Fatal(err)
		}
		twice, err := n.Normalize(once)
		if err != nil {
			t.Fatal(err)
		}
		if once != twice {
			t.Errorf("not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}
