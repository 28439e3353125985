package resolver

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"

	"mercator-hq/tagstream/pkg/metric"
)

func TestIdentifierFrom(t *testing.T) {
	dims := map[string]string{
		"resourceId": "ocid1.log.oc1..a",
		"logGroupId": "ocid1.loggroup.oc1..b",
		"region":     "us-1",
	}

	tests := []struct {
		name    string
		idDim   string
		extra   []string
		want    ResourceIdentifier
		wantErr error
	}{
		{
			name:  "default dimension",
			idDim: DefaultIdentifierDimension,
			want: ResourceIdentifier{
				ID:       "ocid1.log.oc1..a",
				Identity: map[string]string{"resourceId": "ocid1.log.oc1..a"},
			},
		},
		{
			name:  "with extra dimension",
			idDim: DefaultIdentifierDimension,
			extra: []string{"logGroupId"},
			want: ResourceIdentifier{
				ID: "ocid1.log.oc1..a",
				Identity: map[string]string{
					"resourceId": "ocid1.log.oc1..a",
					"logGroupId": "ocid1.loggroup.oc1..b",
				},
			},
		},
		{
			name:    "missing identifier",
			idDim:   "connectorId",
			wantErr: ErrNotFound,
		},
		{
			name:    "missing extra dimension",
			idDim:   DefaultIdentifierDimension,
			extra:   []string{"compartmentId"},
			wantErr: ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := IdentifierFrom(dims, tt.idDim, tt.extra...)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("IdentifierFrom() error = %v, want %v", err, tt.wantErr)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("IdentifierFrom() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMergeTags(t *testing.T) {
	tests := []struct {
		name     string
		defined  map[string]map[string]any
		freeform map[string]string
		want     metric.TagSet
	}{
		{
			name:    "defined and freeform",
			defined: map[string]map[string]any{"Operations": {"CostCenter": "42", "Owner": "ops"}},
			freeform: map[string]string{
				"Environment": "prod",
			},
			want: metric.TagSet{
				"Operations.CostCenter": "42",
				"Operations.Owner":      "ops",
				"Environment":           "prod",
			},
		},
		{
			name:     "freeform replaces defined namespace",
			defined:  map[string]map[string]any{"team": {"name": "core"}},
			freeform: map[string]string{"team": "edge"},
			want:     metric.TagSet{"team": "edge"},
		},
		{
			name:    "non-string defined values",
			defined: map[string]map[string]any{"Limits": {"cpu": 4.5, "enabled": true, "unset": nil}},
			want: metric.TagSet{
				"Limits.cpu":     "4.5",
				"Limits.enabled": "true",
				"Limits.unset":   "",
			},
		},
		{
			name: "nothing",
			want: metric.TagSet{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MergeTags(tt.defined, tt.freeform)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("MergeTags() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFlatten_Nested(t *testing.T) {
	got := Flatten(map[string]any{
		"a": map[string]any{
			"b": map[string]any{"c": "deep"},
			"d": map[string]string{"e": "typed"},
		},
	})
	want := metric.TagSet{"a.b.c": "deep", "a.d.e": "typed"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Flatten() mismatch (-want +got):\n%s", diff)
	}
}

func TestRegistry_Lookup(t *testing.T) {
	var built atomic.Int32
	r := NewRegistry(map[string]Factory{
		"oci_compute": func() (ResourceResolver, error) {
			built.Add(1)
			return Func{}, nil
		},
		"oci_broken": func() (ResourceResolver, error) {
			return nil, errors.New("no credentials")
		},
	}, nil)

	t.Run("unsupported namespace", func(t *testing.T) {
		_, err := r.Lookup("oci_unknown")
		if !errors.Is(err, ErrUnsupportedNamespace) {
			t.Errorf("Lookup() error = %v, want ErrUnsupportedNamespace", err)
		}
	})

	t.Run("factory failure is sticky", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			if _, err := r.Lookup("oci_broken"); err == nil {
				t.Errorf("Lookup() attempt %d: expected error", i)
			}
		}
	})

	t.Run("lazy and built once under concurrency", func(t *testing.T) {
		if built.Load() != 0 {
			t.Fatalf("factory ran before first lookup")
		}

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := r.Lookup("oci_compute"); err != nil {
					t.Errorf("Lookup() error = %v", err)
				}
			}()
		}
		wg.Wait()

		if n := built.Load(); n != 1 {
			t.Errorf("factory calls = %d, want 1", n)
		}
	})

	if diff := cmp.Diff([]string{"oci_broken", "oci_compute"}, r.Namespaces()); diff != "" {
		t.Errorf("Namespaces() mismatch (-want +got):\n%s", diff)
	}
	if !r.Supports("oci_compute") || r.Supports("oci_unknown") {
		t.Error("Supports() returned wrong answer")
	}
}

func TestFunc_Defaults(t *testing.T) {
	var f Func

	id, err := f.ResolveIdentifier("ns", map[string]string{"resourceId": "x"})
	if err != nil || id.ID != "x" {
		t.Fatalf("ResolveIdentifier() = %+v, %v", id, err)
	}

	tags, err := f.FetchTags(context.Background(), "ns", id)
	if err != nil || len(tags) != 0 {
		t.Errorf("FetchTags() = %v, %v; want empty set", tags, err)
	}
}

func TestResolverError(t *testing.T) {
	cause := errors.New("status 500")
	err := error(&ResolverError{Namespace: "oci_compute", ResourceID: "ocid1.instance.oc1..a", Cause: cause})

	if !errors.Is(err, cause) {
		t.Error("ResolverError does not unwrap to its cause")
	}
	var re *ResolverError
	if !errors.As(err, &re) || re.Namespace != "oci_compute" {
		t.Errorf("errors.As() = %+v", re)
	}
	if got, want := err.Error(), "resolve oci_compute ocid1.instance.oc1..a: status 500"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
