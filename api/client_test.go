package api

import (
	"net/http"
	"testing"

	"go.uber.org/zap"
)

func TestModFilterValues(t *testing.T) {
	f := ModFilter{IDs: []int64{3, 17, 256}, DateLiveMin: 100}
	q := f.values()

	if got := q.Get("id-in"); got != "3,17,256" {
		t.Errorf("id-in = %q, want 3,17,256", got)
	}
	if got := q.Get("date_live-min"); got != "100" {
		t.Errorf("date_live-min = %q, want 100", got)
	}
	if q.Has("date_live-max") {
		t.Error("unset bounds must not appear in the query")
	}

	if q := (ModFilter{}).values(); len(q) != 0 {
		t.Errorf("empty filter should encode to nothing, got %v", q)
	}
}

func TestEventFilterValues(t *testing.T) {
	f := EventFilter{ModIDs: []int64{5}, MinID: 9000}
	q := f.values()

	if got := q.Get("mod_id-in"); got != "5" {
		t.Errorf("mod_id-in = %q, want 5", got)
	}
	if got := q.Get("id-min"); got != "9000" {
		t.Errorf("id-min = %q, want 9000", got)
	}
	if q.Has("date_added-min") || q.Has("date_added-max") {
		t.Error("unset bounds must not appear in the query")
	}
}

func TestPaginate(t *testing.T) {
	q := paginate(ModFilter{IDs: []int64{1}}.values(), 100, 300)
	if got := q.Get("_limit"); got != "100" {
		t.Errorf("_limit = %q", got)
	}
	if got := q.Get("_offset"); got != "300" {
		t.Errorf("_offset = %q", got)
	}
	if got := q.Get("id-in"); got != "1" {
		t.Error("paginate must preserve the filter values")
	}
}

func TestToPageCapacityFallback(t *testing.T) {
	env := listEnvelope[ModProfile]{
		Data:         []ModProfile{{ID: 1}},
		ResultOffset: 40,
		ResultTotal:  41,
	}

	// Some responses omit result_limit; the requested limit stands in so the
	// pagination loop still terminates.
	page := toPage(env, 100)
	if page.Capacity != 100 {
		t.Errorf("Capacity = %d, want the requested limit 100", page.Capacity)
	}
	if page.Offset != 40 || page.Total != 41 {
		t.Errorf("page = %+v", page)
	}
}

func TestDownloadClientHasNoOverallTimeout(t *testing.T) {
	c, err := NewClient("https://api.example", "key", 1, "tester", zap.NewNop().Sugar())
	if err != nil {
		t.Fatal(err)
	}

	if c.HTTPClient.Timeout == 0 {
		t.Error("API requests should be bounded by an overall timeout")
	}
	// A large archive read can legitimately outlast any fixed deadline;
	// only the wait for response headers is bounded.
	if c.streamClient.Timeout != 0 {
		t.Error("download client must not bound the body read")
	}
	tr, ok := c.streamClient.Transport.(*http.Transport)
	if !ok {
		t.Fatalf("download transport is %T, want *http.Transport", c.streamClient.Transport)
	}
	if tr.ResponseHeaderTimeout == 0 {
		t.Error("download client should still bound the wait for headers")
	}
}
