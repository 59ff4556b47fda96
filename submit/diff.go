package submit

import "modworks/api"

// DiffStrings computes the set difference between a previous and a new
// string list: removed = previous − next, added = next − previous.
// Elements present in both sides produce no work.
func DiffStrings(previous, next []string) (removed, added []string) {
	prevSet := make(map[string]struct{}, len(previous))
	for _, v := range previous {
		prevSet[v] = struct{}{}
	}
	nextSet := make(map[string]struct{}, len(next))
	for _, v := range next {
		nextSet[v] = struct{}{}
	}
	for _, v := range previous {
		if _, ok := nextSet[v]; !ok {
			removed = append(removed, v)
		}
	}
	for _, v := range next {
		if _, ok := prevSet[v]; !ok {
			added = append(added, v)
		}
	}
	return removed, added
}

// DiffKVPs diffs metadata pairs by exact (key, value) match. The remote
// models these as a flat add/remove set, so the same key with a different
// value yields both a removal of the old pair and an addition of the new,
// never an in-place update.
func DiffKVPs(previous, next []api.MetadataKVP) (removed, added []api.MetadataKVP) {
	prevSet := make(map[api.MetadataKVP]struct{}, len(previous))
	for _, kvp := range previous {
		prevSet[kvp] = struct{}{}
	}
	nextSet := make(map[api.MetadataKVP]struct{}, len(next))
	for _, kvp := range next {
		nextSet[kvp] = struct{}{}
	}
	for _, kvp := range previous {
		if _, ok := nextSet[kvp]; !ok {
			removed = append(removed, kvp)
		}
	}
	for _, kvp := range next {
		if _, ok := prevSet[kvp]; !ok {
			added = append(added, kvp)
		}
	}
	return removed, added
}
