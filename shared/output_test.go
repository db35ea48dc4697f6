package shared

import (
	"strings"
	"testing"
	"time"
)

func TestCleanStripsSentinelAndNoise(t *testing.T) {
	raw := "C:\\Users\\victim\r\n\r\n" + Sentinel + "whoami\r\ncorp\\jdoe\r\n" + Sentinel
	got := Clean(raw)
	want := "C:\\Users\\victim\nwhoami\ncorp\\jdoe"
	if got != want {
		t.Fatalf("Clean = %q, want %q", got, want)
	}
	if strings.Contains(got, Sentinel) {
		t.Error("cleaned output still contains the sentinel")
	}
}

func TestCleanSentinelInsideLine(t *testing.T) {
	got := Clean("before " + Sentinel + " after")
	if got != "before  after" {
		t.Fatalf("Clean = %q", got)
	}
}

func TestCleanIdempotent(t *testing.T) {
	inputs := []string{
		"",
		"plain text",
		"  padded  \r\n\r\nnext\r\n",
		Sentinel + "dir\r\n Volume in drive C\r\n" + Sentinel,
	}
	for _, in := range inputs {
		once := Clean(in)
		if twice := Clean(once); twice != once {
			t.Errorf("Clean not idempotent for %q: %q -> %q", in, once, twice)
		}
	}
}

func TestCleanLines(t *testing.T) {
	lines := CleanLines("one\r\n\r\ntwo\r\n" + Sentinel)
	if len(lines) != 2 || lines[0] != "one" || lines[1] != "two" {
		t.Fatalf("CleanLines = %v", lines)
	}

	if got := CleanLines(""); got != nil {
		t.Errorf("CleanLines(\"\") = %v, want nil", got)
	}
	if got := CleanLines(Sentinel + "\r\n"); got != nil {
		t.Errorf("CleanLines(sentinel only) = %v, want nil", got)
	}
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{45 * time.Second, "45s"},
		{90 * time.Second, "1m"},
		{59 * time.Minute, "59m"},
		{3 * time.Hour, "3h"},
	}
	for _, c := range cases {
		if got := FormatDuration(c.d); got != c.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", c.d, got, c.want)
		}
	}
}

func TestGenerateCodename(t *testing.T) {
	for i := 0; i < 20; i++ {
		name := GenerateCodename()
		if name == "" {
			t.Fatal("empty codename")
		}
		if name != strings.ToUpper(name) {
			t.Errorf("codename %q is not upper-case", name)
		}
	}
}
