package main

import (
	"bytes"
	"flag"
	"strings"
	"testing"
)

func TestUsage(t *testing.T) {
	var buf bytes.Buffer
	flag.CommandLine.SetOutput(&buf)
	defer flag.CommandLine.SetOutput(nil)
	usage()

	for _, c := range commands {
		if !strings.Contains(buf.String(), c.summary) {
			t.Fatalf("expected %q in usage, got %q", c.summary, buf.String())
		}
		if got, ok := lookup(c.name); !ok || got.name != c.name {
			t.Fatalf("expected %v, got %v", c.name, got.name)
		}
	}
	if _, ok := lookup("rom"); ok {
		t.Fatal("expected unknown command")
	}
}
