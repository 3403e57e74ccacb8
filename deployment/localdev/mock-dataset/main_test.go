package main

import (
	"math/rand"
	"reflect"
	"testing"
)

func TestGenerateIsSeeded(t *testing.T) {
	a := generate(rand.New(rand.NewSource(7)), 40, 300, 0.8)
	b := generate(rand.New(rand.NewSource(7)), 40, 300, 0.8)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("same seed must produce the same dataset")
	}
	if len(a.Pipelines) != 3 || len(a.Observations) != 300 || len(a.Objects) == 0 {
		t.Fatalf("unexpected sizes: %d pipelines, %d objects, %d observations", len(a.Pipelines), len(a.Objects), len(a.Observations))
	}
	known := make(map[string]bool, len(a.Objects))
	for _, o := range a.Objects {
		known[o.ID] = true
	}
	for _, o := range a.Observations {
		if !known[o.ObjectID] {
			t.Fatalf("observation %s references unknown object %s", o.ID, o.ObjectID)
		}
		if o.Label != "" && o.Label != "normal" && o.Label != "medium" && o.Label != "high" {
			t.Fatalf("unexpected label %q", o.Label)
		}
	}
}
