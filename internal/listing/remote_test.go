package listing

import "testing"

func TestDecodeRemotePageShapes(t *testing.T) {
	cases := []struct {
		name          string
		body          string
		items         int
		wantPg        *RemotePagination
		wantMalformed bool
	}{
		{
			name:  "bare array",
			body:  `[{"id":1,"title":"a"},{"id":"2","title":"b"}]`,
			items: 2,
		},
		{
			name:   "envelope with totalPages",
			body:   `{"data":[{"id":1}],"pagination":{"page":1,"pageSize":10,"total":42,"totalPages":5}}`,
			items:  1,
			wantPg: &RemotePagination{Page: 1, PageSize: 10, Total: 42, HasTotal: true, TotalPages: 5},
		},
		{
			name:   "envelope with pages",
			body:   `{"data":[],"pagination":{"page":2,"pageSize":10,"total":12,"pages":2}}`,
			wantPg: &RemotePagination{Page: 2, PageSize: 10, Total: 12, HasTotal: true, TotalPages: 2},
		},
		{
			name:   "snake case meta with string numbers",
			body:   `{"items":[{"id":1},{"id":2}],"meta":{"current_page":"3","per_page":"2","total_items":"9"}}`,
			items:  2,
			wantPg: &RemotePagination{Page: 3, PageSize: 2, Total: 9, HasTotal: true},
		},
		{
			name:          "envelope without pagination",
			body:          `{"data":[{"id":1}]}`,
			items:         1,
			wantMalformed: true,
		},
		{
			name:          "data is not an array",
			body:          `{"data":"nope","pagination":{"page":1,"pageSize":10,"total":0}}`,
			wantPg:        &RemotePagination{Page: 1, PageSize: 10, HasTotal: true},
			wantMalformed: true,
		},
		{
			name:          "unreadable records are skipped",
			body:          `[{"id":1},42,"x",{"id":4}]`,
			items:         2,
			wantMalformed: true,
		},
		{
			name:          "fractional and negative counts are dropped",
			body:          `{"data":[],"pagination":{"page":1.5,"pageSize":-4,"total":-1}}`,
			wantPg:        &RemotePagination{},
			wantMalformed: true,
		},
		{name: "not json", body: `<html>oops</html>`, wantMalformed: true},
		{name: "empty body", body: ``, wantMalformed: true},
		{name: "scalar", body: `42`, wantMalformed: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			page := DecodeRemotePage[posting]([]byte(tc.body))
			if page.Items == nil {
				t.Fatal("items must never be nil")
			}
			if len(page.Items) != tc.items {
				t.Fatalf("items: got=%d want=%d", len(page.Items), tc.items)
			}
			if page.Malformed != tc.wantMalformed {
				t.Fatalf("malformed: got=%v want=%v", page.Malformed, tc.wantMalformed)
			}
			switch {
			case tc.wantPg == nil && page.Pagination != nil:
				t.Fatalf("expected no pagination, got %+v", page.Pagination)
			case tc.wantPg != nil && page.Pagination == nil:
				t.Fatal("expected pagination")
			case tc.wantPg != nil && *page.Pagination != *tc.wantPg:
				t.Fatalf("pagination: got=%+v want=%+v", *page.Pagination, *tc.wantPg)
			}
		})
	}
}

func TestDecodeRemotePageAcceptsNumericAndStringIDs(t *testing.T) {
	page := DecodeRemotePage[posting]([]byte(`[{"id":7},{"id":"x-8"}]`))
	if page.Items[0].ID != "7" || page.Items[1].ID != "x-8" {
		t.Fatalf("unexpected ids: %+v", page.Items)
	}
}
