package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestConfirmer(t *testing.T) {
	tests := []struct {
		input  string
		expect bool
	}{
		{"s\n", true},
		{"Sim\n", true},
		{"yes\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
		{"talvez\n", false},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		c := NewConfirmer(strings.NewReader(tt.input), &out)
		got, err := c.Confirm(context.Background(), "Sair?")
		if err != nil {
			t.Fatalf("Confirm(%q) error: %v", tt.input, err)
		}
		if got != tt.expect {
			t.Errorf("Confirm(%q) = %v, want %v", tt.input, got, tt.expect)
		}
		if !strings.HasPrefix(out.String(), "Sair? ") {
			t.Errorf("prompt not written: %q", out.String())
		}
	}
}

func TestConfirmerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := NewConfirmer(strings.NewReader("s\n"), &bytes.Buffer{})
	if _, err := c.Confirm(ctx, "Sair?"); err == nil {
		t.Error("expected context error")
	}
}

func TestURLPrinter(t *testing.T) {
	var out bytes.Buffer
	if err := (URLPrinter{Out: &out}).Open(context.Background(), "http://x/auth/google?client=web"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "http://x/auth/google?client=web") {
		t.Errorf("URL not printed: %q", out.String())
	}
}
