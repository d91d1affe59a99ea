package digest

import (
	"bytes"
	"strings"
	"testing"
)

func TestSumKnownVectors(t *testing.T) {
	cases := map[string]string{
		"":            "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		"hello world": "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9",
		"abc":         "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad",
	}
	for input, want := range cases {
		if got := Sum([]byte(input)); got != want {
			t.Fatalf("Sum(%q) = %s, want %s", input, got, want)
		}
	}
}

func TestSumDeterministic(t *testing.T) {
	data := bytes.Repeat([]byte{0x00, 0xff, 0x42}, 10000)
	first := Sum(data)
	for i := 0; i < 5; i++ {
		if got := Sum(data); got != first {
			t.Fatalf("digest changed between calls: %s vs %s", first, got)
		}
	}
	if !Valid(first) {
		t.Fatalf("expected valid digest, got %q", first)
	}
}

func TestSumReaderMatchesSum(t *testing.T) {
	data := strings.Repeat("sensor-capture", 4096)
	got, n, err := SumReader(strings.NewReader(data))
	if err != nil {
		t.Fatalf("sum reader: %v", err)
	}
	if n != int64(len(data)) {
		t.Fatalf("expected %d bytes, got %d", len(data), n)
	}
	if got != Sum([]byte(data)) {
		t.Fatalf("streaming digest %s does not match one-shot digest", got)
	}
}

func TestValid(t *testing.T) {
	if Valid(strings.Repeat("A", HexLen)) {
		t.Fatal("uppercase hex must be rejected")
	}
	if Valid(strings.Repeat("a", HexLen-1)) {
		t.Fatal("short digest must be rejected")
	}
	if !Valid(strings.Repeat("0", HexLen)) {
		t.Fatal("expected zero digest to be valid")
	}
}
