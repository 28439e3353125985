package oci

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"mercator-hq/tagstream/internal/ocitest"
	"mercator-hq/tagstream/pkg/metric"
	"mercator-hq/tagstream/pkg/providers"
	"mercator-hq/tagstream/pkg/resolver"
)

// newTestClient returns a client whose every service points at server.
func newTestClient(t *testing.T, server *ocitest.MockServer) *Client {
	t.Helper()

	overrides := make(map[Service]string)
	for _, s := range Services() {
		overrides[s] = server.URL()
	}
	p := providers.NewHTTPProvider(providers.ProviderConfig{
		Name:        "oci-test",
		Timeout:     2 * time.Second,
		MaxAttempts: 2,
		BaseBackoff: time.Millisecond,
		MaxBackoff:  2 * time.Millisecond,
	}, providers.NoopSigner)
	t.Cleanup(func() { p.Close() })

	return NewClient(p, Endpoints{Region: "us-ashburn-1", Overrides: overrides})
}

func newTestResolver(t *testing.T, namespace string, server *ocitest.MockServer) *Resolver {
	t.Helper()
	r, err := NewResolver(namespace, newTestClient(t, server), nil)
	if err != nil {
		t.Fatalf("NewResolver(%q) error = %v", namespace, err)
	}
	return r
}

func TestEndpoints_BaseURL(t *testing.T) {
	tests := []struct {
		name      string
		endpoints Endpoints
		service   Service
		want      string
		wantErr   bool
	}{
		{
			name:      "core",
			endpoints: Endpoints{Region: "us-ashburn-1"},
			service:   ServiceCore,
			want:      "https://iaas.us-ashburn-1.oraclecloud.com",
		},
		{
			name:      "oci subdomain",
			endpoints: Endpoints{Region: "eu-frankfurt-1"},
			service:   ServiceManagementAgent,
			want:      "https://management-agent.eu-frankfurt-1.oci.oraclecloud.com",
		},
		{
			name:      "custom domain",
			endpoints: Endpoints{Region: "us-gov-1", Domain: "oraclegovcloud.com"},
			service:   ServiceResourceSearch,
			want:      "https://query.us-gov-1.oraclegovcloud.com",
		},
		{
			name: "override",
			endpoints: Endpoints{Overrides: map[Service]string{
				ServiceVaults: "http://127.0.0.1:9000/",
			}},
			service: ServiceVaults,
			want:    "http://127.0.0.1:9000",
		},
		{
			name:      "no region",
			endpoints: Endpoints{},
			service:   ServiceCore,
			wantErr:   true,
		},
		{
			name:      "unknown service",
			endpoints: Endpoints{Region: "us-ashburn-1"},
			service:   "dns",
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.endpoints.BaseURL(tt.service)
			if (err != nil) != tt.wantErr {
				t.Fatalf("BaseURL() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("BaseURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseService(t *testing.T) {
	if s, err := ParseService("ObjectStorage"); err != nil || s != ServiceObjectStorage {
		t.Errorf("ParseService(ObjectStorage) = %q, %v", s, err)
	}
	if _, err := ParseService("dns"); err == nil {
		t.Error("ParseService(dns) succeeded")
	}
}

func TestResolver_ResolveIdentifier(t *testing.T) {
	server := ocitest.NewMockServer()
	defer server.Close()

	tests := []struct {
		namespace  string
		dimensions map[string]string
		want       resolver.ResourceIdentifier
		wantErr    error
	}{
		{
			namespace:  "oci_compute",
			dimensions: map[string]string{"resourceId": "ocid1.instance.oc1..a", "shape": "E4"},
			want: resolver.ResourceIdentifier{
				ID:       "ocid1.instance.oc1..a",
				Identity: map[string]string{"resourceId": "ocid1.instance.oc1..a"},
			},
		},
		{
			namespace:  "oci_service_connector_hub",
			dimensions: map[string]string{"connectorId": "ocid1.serviceconnector.oc1..c", "resourceId": "other"},
			want: resolver.ResourceIdentifier{
				ID:       "ocid1.serviceconnector.oc1..c",
				Identity: map[string]string{"connectorId": "ocid1.serviceconnector.oc1..c"},
			},
		},
		{
			namespace:  "oci_objectstorage",
			dimensions: map[string]string{"resourceID": "ocid1.bucket.oc1..b"},
			want: resolver.ResourceIdentifier{
				ID:       "ocid1.bucket.oc1..b",
				Identity: map[string]string{"resourceID": "ocid1.bucket.oc1..b"},
			},
		},
		{
			namespace:  "oci_logging",
			dimensions: map[string]string{"resourceId": "ocid1.log.oc1..l", "logGroupId": "ocid1.loggroup.oc1..g"},
			want: resolver.ResourceIdentifier{
				ID:       "ocid1.log.oc1..l",
				Identity: map[string]string{"resourceId": "ocid1.log.oc1..l", "logGroupId": "ocid1.loggroup.oc1..g"},
			},
		},
		{
			namespace:  "oci_logging",
			dimensions: map[string]string{"resourceId": "ocid1.log.oc1..l"},
			wantErr:    resolver.ErrNotFound,
		},
		{
			namespace:  "oci_objectstorage",
			dimensions: map[string]string{"resourceId": "ocid1.bucket.oc1..b"},
			wantErr:    resolver.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.namespace, func(t *testing.T) {
			r := newTestResolver(t, tt.namespace, server)

			got, err := r.ResolveIdentifier(tt.namespace, tt.dimensions)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ResolveIdentifier() error = %v, want %v", err, tt.wantErr)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ResolveIdentifier() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// TestResolver_FetchTags tests that each namespace reads the right API for
// the OCID type it is given.
func TestResolver_FetchTags(t *testing.T) {
	tests := []struct {
		namespace string
		id        resolver.ResourceIdentifier
		path      string
	}{
		{"oci_compute", ident("resourceId", "ocid1.instance.oc1.iad.a"), "/20160918/instances/ocid1.instance.oc1.iad.a"},
		{"oci_computeagent", ident("resourceId", "ocid1.instance.oc1.iad.a"), "/20160918/instances/ocid1.instance.oc1.iad.a"},
		{"oci_apigateway", ident("resourceId", "ocid1.apigateway.oc1..g"), "/20190501/gateways/ocid1.apigateway.oc1..g"},
		{"oci_bastion", ident("resourceId", "ocid1.bastion.oc1..b"), "/20210331/bastions/ocid1.bastion.oc1..b"},
		{"oci_blockstore", ident("resourceId", "ocid1.bootvolume.oc1..v"), "/20160918/bootVolumes/ocid1.bootvolume.oc1..v"},
		{"oci_blockstore", ident("resourceId", "ocid1.volume.oc1..v"), "/20160918/volumes/ocid1.volume.oc1..v"},
		{"oci_filestorage", ident("resourceId", "ocid1.mounttarget.oc1..m"), "/20171215/mountTargets/ocid1.mounttarget.oc1..m"},
		{"oci_filestorage", ident("resourceId", "ocid1.filesystem.oc1..f"), "/20171215/fileSystems/ocid1.filesystem.oc1..f"},
		{"oci_internet_gateway", ident("resourceId", "ocid1.internetgateway.oc1..i"), "/20160918/internetGateways/ocid1.internetgateway.oc1..i"},
		{"oci_lbaas", ident("resourceId", "ocid1.loadbalancer.oc1..l"), "/20170115/loadBalancers/ocid1.loadbalancer.oc1..l"},
		{"oci_managementagent", ident("resourceId", "ocid1.managementagent.oc1..m"), "/20200202/managementAgents/ocid1.managementagent.oc1..m"},
		{"oci_oke", ident("resourceId", "ocid1.instance.oc1..n"), "/20160918/instances/ocid1.instance.oc1..n"},
		{"oci_oke", ident("resourceId", "ocid1.cluster.oc1..c"), "/20180222/clusters/ocid1.cluster.oc1..c"},
		{"oci_postgresql", ident("resourceId", "ocid1.postgresqldbsystem.oc1..p"), "/20220915/dbSystems/ocid1.postgresqldbsystem.oc1..p"},
		{"oci_secrets", ident("resourceId", "ocid1.vaultsecret.oc1..s"), "/20180608/secrets/ocid1.vaultsecret.oc1..s"},
		{"oci_service_connector_hub", ident("connectorId", "ocid1.serviceconnector.oc1..c"), "/20200909/serviceConnectors/ocid1.serviceconnector.oc1..c"},
		{"oci_service_gateway", ident("resourceId", "ocid1.servicegateway.oc1..s"), "/20160918/serviceGateways/ocid1.servicegateway.oc1..s"},
		{"oci_vcn", ident("resourceId", "ocid1.vnic.oc1..v"), "/20160918/vnics/ocid1.vnic.oc1..v"},
		{"oci_vcnip", ident("resourceId", "ocid1.subnet.oc1..s"), "/20160918/subnets/ocid1.subnet.oc1..s"},
		{
			"oci_logging",
			resolver.ResourceIdentifier{
				ID:       "ocid1.log.oc1..l",
				Identity: map[string]string{"resourceId": "ocid1.log.oc1..l", "logGroupId": "ocid1.loggroup.oc1..g"},
			},
			"/20200531/logGroups/ocid1.loggroup.oc1..g/logs/ocid1.log.oc1..l",
		},
	}

	for _, tt := range tests {
		t.Run(tt.namespace+"/"+tt.id.ID, func(t *testing.T) {
			server := ocitest.NewMockServer()
			defer server.Close()
			server.SetResponse(tt.path, ocitest.MockResponse{
				Body: ocitest.TaggedResource(tt.id.ID,
					map[string]map[string]any{"Ops": {"Team": "core"}},
					map[string]string{"Environment": "prod"},
				),
			})

			r := newTestResolver(t, tt.namespace, server)
			got, err := r.FetchTags(context.Background(), tt.namespace, tt.id)
			if err != nil {
				t.Fatalf("FetchTags() error = %v", err)
			}

			want := metric.TagSet{"Ops.Team": "core", "Environment": "prod"}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("FetchTags() mismatch (-want +got):\n%s", diff)
			}
			if n := server.RequestCount(tt.path); n != 1 {
				t.Errorf("RequestCount(%s) = %d, want 1", tt.path, n)
			}
		})
	}
}

func ident(dimension, id string) resolver.ResourceIdentifier {
	return resolver.ResourceIdentifier{ID: id, Identity: map[string]string{dimension: id}}
}

// TestResolver_FetchTags_UnknownKind tests that an OCID of a type the
// namespace does not read yields empty tags without a remote call.
func TestResolver_FetchTags_UnknownKind(t *testing.T) {
	server := ocitest.NewMockServer()
	defer server.Close()

	r := newTestResolver(t, "oci_compute", server)
	got, err := r.FetchTags(context.Background(), "oci_compute", ident("resourceId", "ocid1.dedicatedvmhost.oc1..d"))
	if err != nil {
		t.Fatalf("FetchTags() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("FetchTags() = %v, want empty", got)
	}
	if n := server.RequestCount(""); n != 0 {
		t.Errorf("RequestCount() = %d, want 0", n)
	}
}

func TestResolver_FetchTags_Bucket(t *testing.T) {
	const bucketID = "ocid1.bucket.oc1.iad.b"

	server := ocitest.NewMockServer()
	defer server.Close()
	server.SetResponse("/20180409/resources", ocitest.MockResponse{
		Body: map[string]any{"items": []map[string]any{{"displayName": "logs archive", "identifier": bucketID}}},
	})
	server.SetResponse("/n/", ocitest.MockResponse{Body: `"tenancyns"`})
	server.SetResponse("/n/tenancyns/b/logs archive", ocitest.MockResponse{
		Body: ocitest.TaggedResource(bucketID, nil, map[string]string{"Retention": "90d"}),
	})

	r := newTestResolver(t, "oci_objectstorage", server)
	for i := 0; i < 2; i++ {
		got, err := r.FetchTags(context.Background(), "oci_objectstorage", ident("resourceID", bucketID))
		if err != nil {
			t.Fatalf("FetchTags() error = %v", err)
		}
		if diff := cmp.Diff(metric.TagSet{"Retention": "90d"}, got); diff != "" {
			t.Errorf("FetchTags() mismatch (-want +got):\n%s", diff)
		}
	}

	if n := server.RequestCount("/n/"); n != 1 {
		t.Errorf("namespace requests = %d, want 1", n)
	}

	var search ocitest.Request
	for _, req := range server.Requests() {
		if req.Path == "/20180409/resources" {
			search = req
			break
		}
	}
	if search.Method != http.MethodPost {
		t.Errorf("search method = %q, want POST", search.Method)
	}
	if search.Query != "limit=1" {
		t.Errorf("search query = %q, want limit=1", search.Query)
	}
	err := ocitest.ExpectJSONBody(search, map[string]any{
		"type":  "Structured",
		"query": "query bucket resources where identifier = '" + bucketID + "'",
	})
	if err != nil {
		t.Error(err)
	}
}

// TestResolver_FetchTags_BucketNotFound tests that a search without hits is
// reported as ErrNotFound, which enrichment treats as an untagged resource.
func TestResolver_FetchTags_BucketNotFound(t *testing.T) {
	server := ocitest.NewMockServer()
	defer server.Close()
	server.SetResponse("/20180409/resources", ocitest.MockResponse{Body: map[string]any{"items": []any{}}})

	r := newTestResolver(t, "oci_objectstorage", server)
	_, err := r.FetchTags(context.Background(), "oci_objectstorage", ident("resourceID", "ocid1.bucket.oc1..gone"))
	if !errors.Is(err, resolver.ErrNotFound) {
		t.Fatalf("FetchTags() error = %v, want ErrNotFound", err)
	}
	if n := server.RequestCount("/n/"); n != 0 {
		t.Errorf("namespace requests = %d, want 0", n)
	}
}

func TestResolver_FetchTags_Errors(t *testing.T) {
	const id = "ocid1.instance.oc1..a"
	path := "/20160918/instances/" + id

	tests := []struct {
		name     string
		response ocitest.MockResponse
		check    func(error) bool
		requests int
	}{
		{
			name:     "not found",
			response: ocitest.MockErrorResponse(http.StatusNotFound, "NotAuthorizedOrNotFound", "no such instance"),
			check:    providers.IsNotFound,
			requests: 1,
		},
		{
			name:     "auth",
			response: ocitest.MockAuthError(),
			check: func(err error) bool {
				var authErr *providers.AuthError
				return errors.As(err, &authErr)
			},
			requests: 1,
		},
		{
			name:     "server error retried",
			response: ocitest.MockServerError(),
			check:    func(err error) bool { return providers.ErrorType(err) == "server_error" },
			requests: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := ocitest.NewMockServer()
			defer server.Close()
			server.SetResponse(path, tt.response)

			r := newTestResolver(t, "oci_compute", server)
			_, err := r.FetchTags(context.Background(), "oci_compute", ident("resourceId", id))

			var rerr *resolver.ResolverError
			if !errors.As(err, &rerr) {
				t.Fatalf("FetchTags() error = %v, want *ResolverError", err)
			}
			if rerr.Namespace != "oci_compute" || rerr.ResourceID != id {
				t.Errorf("ResolverError = %+v", rerr)
			}
			if !tt.check(err) {
				t.Errorf("unexpected cause: %v", err)
			}
			if n := server.RequestCount(path); n != tt.requests {
				t.Errorf("RequestCount() = %d, want %d", n, tt.requests)
			}
		})
	}
}

// TestResolver_FetchTags_Retry tests that a transient failure is retried
// transparently.
func TestResolver_FetchTags_Retry(t *testing.T) {
	const id = "ocid1.vnic.oc1..v"
	path := "/20160918/vnics/" + id

	server := ocitest.NewMockServer()
	defer server.Close()
	server.SetResponse(path, ocitest.MockResponse{Sequence: []ocitest.MockResponse{
		ocitest.MockRateLimitError(0),
		{Body: ocitest.TaggedResource(id, nil, map[string]string{"k": "v"})},
	}})

	r := newTestResolver(t, "oci_vcn", server)
	got, err := r.FetchTags(context.Background(), "oci_vcn", ident("resourceId", id))
	if err != nil {
		t.Fatalf("FetchTags() error = %v", err)
	}
	if got["k"] != "v" {
		t.Errorf("FetchTags() = %v", got)
	}
	if n := server.RequestCount(path); n != 2 {
		t.Errorf("RequestCount() = %d, want 2", n)
	}
}

func TestNewResolver(t *testing.T) {
	server := ocitest.NewMockServer()
	defer server.Close()
	client := newTestClient(t, server)

	if _, err := NewResolver("oci_unknown", client, nil); !errors.Is(err, resolver.ErrUnsupportedNamespace) {
		t.Errorf("NewResolver(oci_unknown) error = %v, want ErrUnsupportedNamespace", err)
	}

	noRegion := NewClient(providers.NewHTTPProvider(providers.ProviderConfig{}, providers.NoopSigner), Endpoints{})
	if _, err := NewResolver("oci_compute", noRegion, nil); err == nil || !strings.Contains(err.Error(), "region") {
		t.Errorf("NewResolver() without region error = %v", err)
	}
}

// TestFactories tests that the factory table covers every namespace and
// plugs into the registry.
func TestFactories(t *testing.T) {
	server := ocitest.NewMockServer()
	defer server.Close()

	reg := resolver.NewRegistry(Factories(newTestClient(t, server), nil), nil)
	if diff := cmp.Diff(Namespaces(), reg.Namespaces()); diff != "" {
		t.Errorf("Namespaces() mismatch (-want +got):\n%s", diff)
	}
	if len(Namespaces()) != 20 {
		t.Errorf("len(Namespaces()) = %d, want 20", len(Namespaces()))
	}

	for _, ns := range reg.Namespaces() {
		r, err := reg.Lookup(ns)
		if err != nil {
			t.Errorf("Lookup(%q) error = %v", ns, err)
			continue
		}
		if r.(*Resolver).namespace != ns {
			t.Errorf("Lookup(%q) returned resolver for %q", ns, r.(*Resolver).namespace)
		}
	}
}
