package submit

import (
	"reflect"
	"testing"

	"modworks/api"
)

func TestDiffStrings(t *testing.T) {
	tests := []struct {
		name        string
		previous    []string
		next        []string
		wantRemoved []string
		wantAdded   []string
	}{
		{
			name:        "overlap",
			previous:    []string{"A", "B"},
			next:        []string{"B", "C"},
			wantRemoved: []string{"A"},
			wantAdded:   []string{"C"},
		},
		{
			name:     "identical",
			previous: []string{"A", "B"},
			next:     []string{"A", "B"},
		},
		{
			name:      "all new",
			previous:  nil,
			next:      []string{"X", "Y"},
			wantAdded: []string{"X", "Y"},
		},
		{
			name:        "all removed",
			previous:    []string{"X", "Y"},
			next:        nil,
			wantRemoved: []string{"X", "Y"},
		},
		{
			name:        "order preserved",
			previous:    []string{"C", "A", "B"},
			next:        []string{"B", "D", "A", "E"},
			wantRemoved: []string{"C"},
			wantAdded:   []string{"D", "E"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			removed, added := DiffStrings(tt.previous, tt.next)
			if !reflect.DeepEqual(removed, tt.wantRemoved) {
				t.Errorf("removed = %v, want %v", removed, tt.wantRemoved)
			}
			if !reflect.DeepEqual(added, tt.wantAdded) {
				t.Errorf("added = %v, want %v", added, tt.wantAdded)
			}
		})
	}
}

func TestDiffKVPsValueChange(t *testing.T) {
	previous := []api.MetadataKVP{{Key: "difficulty", Value: "1"}}
	next := []api.MetadataKVP{{Key: "difficulty", Value: "2"}}

	removed, added := DiffKVPs(previous, next)
	if !reflect.DeepEqual(removed, previous) {
		t.Errorf("removed = %v, want %v", removed, previous)
	}
	if !reflect.DeepEqual(added, next) {
		t.Errorf("added = %v, want %v", added, next)
	}
}

func TestDiffKVPsNoChange(t *testing.T) {
	kvps := []api.MetadataKVP{
		{Key: "difficulty", Value: "2"},
		{Key: "theme", Value: "dark"},
	}

	removed, added := DiffKVPs(kvps, kvps)
	if len(removed) != 0 || len(added) != 0 {
		t.Errorf("expected empty diff, got removed=%v added=%v", removed, added)
	}
}
