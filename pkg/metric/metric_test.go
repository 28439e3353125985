package metric

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestEnriched_MergedTags(t *testing.T) {
	tests := []struct {
		name string
		in   Enriched
		want map[string]string
	}{
		{
			name: "disjoint sources",
			in: Enriched{
				RawMetric: RawMetric{
					Metadata:   map[string]string{"region": "us-1"},
					Dimensions: map[string]string{"resourceId": "ocid1.instance.abc"},
				},
				Tags: TagSet{"Environment": "prod"},
			},
			want: map[string]string{
				"region":      "us-1",
				"resourceId":  "ocid1.instance.abc",
				"Environment": "prod",
			},
		},
		{
			name: "dimensions override metadata",
			in: Enriched{
				RawMetric: RawMetric{
					Metadata:   map[string]string{"unit": "percent"},
					Dimensions: map[string]string{"unit": "ratio"},
				},
			},
			want: map[string]string{"unit": "ratio"},
		},
		{
			name: "resolved tags override dimensions and metadata",
			in: Enriched{
				RawMetric: RawMetric{
					Metadata:   map[string]string{"team": "meta"},
					Dimensions: map[string]string{"team": "dim"},
				},
				Tags: TagSet{"team": "tag"},
			},
			want: map[string]string{"team": "tag"},
		},
		{
			name: "all nil",
			in:   Enriched{},
			want: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.MergedTags()
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("MergedTags() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTagSet_KeysSorted(t *testing.T) {
	ts := TagSet{"b": "2", "a": "1", "c": "3"}
	want := []string{"a", "b", "c"}
	if diff := cmp.Diff(want, ts.Keys()); diff != "" {
		t.Errorf("Keys() mismatch (-want +got):\n%s", diff)
	}
}

func TestTagSet_CloneIsIndependent(t *testing.T) {
	orig := TagSet{"a": "1"}
	clone := orig.Clone()
	clone["a"] = "2"
	if orig["a"] != "1" {
		t.Errorf("mutating clone changed original: %v", orig)
	}

	var nilSet TagSet
	if got := nilSet.Clone(); got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil clone of nil set, got %#v", got)
	}
}
