package oci

import (
	"context"

	"mercator-hq/tagstream/pkg/metric"
	"mercator-hq/tagstream/pkg/resolver"
)

// Identifier dimensions that differ from resolver.DefaultIdentifierDimension.
const (
	connectorIDDimension = "connectorId"
	bucketIDDimension    = "resourceID"
	logGroupIDDimension  = "logGroupId"
)

// kind is one resource type a namespace can report on. segment is matched
// against the dot-separated parts of the resource OCID.
type kind struct {
	segment  string
	services []Service
	fetch    func(ctx context.Context, c *Client, id resolver.ResourceIdentifier) (metric.TagSet, error)
}

// variant describes how one metric namespace maps to resources.
type variant struct {
	idDimension string
	extra       []string

	// kinds are tried in order; the first whose segment appears in the
	// OCID wins.
	kinds []kind
}

// resource builds a kind read with a single GET. pathFmt receives the values
// of dims from the identity, then the resource OCID.
func resource(segment string, s Service, pathFmt string, dims ...string) kind {
	return kind{
		segment:  segment,
		services: []Service{s},
		fetch: func(ctx context.Context, c *Client, id resolver.ResourceIdentifier) (metric.TagSet, error) {
			args := make([]string, 0, len(dims)+1)
			for _, d := range dims {
				args = append(args, id.Identity[d])
			}
			args = append(args, id.ID)
			return c.GetTags(ctx, s, escapePath(pathFmt, args...))
		},
	}
}

var (
	instance = resource("instance", ServiceCore, "/20160918/instances/%s")

	// bucket metrics carry the bucket OCID but the bucket API is addressed
	// by name, so the name is found through resource search first.
	bucket = kind{
		segment:  "bucket",
		services: []Service{ServiceResourceSearch, ServiceObjectStorage},
		fetch: func(ctx context.Context, c *Client, id resolver.ResourceIdentifier) (metric.TagSet, error) {
			name, err := c.SearchDisplayName(ctx, "bucket", id.ID)
			if err != nil {
				return nil, err
			}
			ns, err := c.ObjectStorageNamespace(ctx)
			if err != nil {
				return nil, err
			}
			return c.GetTags(ctx, ServiceObjectStorage, escapePath("/n/%s/b/%s", ns, name))
		},
	}
)

// variants is the namespace capability table.
var variants = map[string]variant{
	"oci_apigateway": {kinds: []kind{
		resource("apigateway", ServiceAPIGateway, "/20190501/gateways/%s"),
	}},
	"oci_bastion": {kinds: []kind{
		resource("bastion", ServiceBastion, "/20210331/bastions/%s"),
	}},
	"oci_blockstore": {kinds: []kind{
		resource("bootvolume", ServiceCore, "/20160918/bootVolumes/%s"),
		resource("volume", ServiceCore, "/20160918/volumes/%s"),
	}},
	"oci_compute":                       {kinds: []kind{instance}},
	"oci_compute_infrastructure_health": {kinds: []kind{instance}},
	"oci_compute_instance_health":       {kinds: []kind{instance}},
	"oci_computeagent":                  {kinds: []kind{instance}},
	"oci_filestorage": {kinds: []kind{
		resource("mounttarget", ServiceFileStorage, "/20171215/mountTargets/%s"),
		resource("filesystem", ServiceFileStorage, "/20171215/fileSystems/%s"),
	}},
	"oci_internet_gateway": {kinds: []kind{
		resource("internetgateway", ServiceCore, "/20160918/internetGateways/%s"),
	}},
	"oci_lbaas": {kinds: []kind{
		resource("loadbalancer", ServiceLoadBalancer, "/20170115/loadBalancers/%s"),
	}},
	"oci_logging": {
		extra: []string{logGroupIDDimension},
		kinds: []kind{
			resource("log", ServiceLogging, "/20200531/logGroups/%s/logs/%s", logGroupIDDimension),
		},
	},
	"oci_managementagent": {kinds: []kind{
		resource("managementagent", ServiceManagementAgent, "/20200202/managementAgents/%s"),
	}},
	"oci_objectstorage": {
		idDimension: bucketIDDimension,
		kinds:       []kind{bucket},
	},
	"oci_oke": {kinds: []kind{
		instance,
		resource("cluster", ServiceContainerEngine, "/20180222/clusters/%s"),
	}},
	"oci_postgresql": {kinds: []kind{
		resource("postgresqldbsystem", ServicePostgreSQL, "/20220915/dbSystems/%s"),
	}},
	"oci_secrets": {kinds: []kind{
		resource("vaultsecret", ServiceVaults, "/20180608/secrets/%s"),
	}},
	"oci_service_connector_hub": {
		idDimension: connectorIDDimension,
		kinds: []kind{
			resource("serviceconnector", ServiceConnectorHub, "/20200909/serviceConnectors/%s"),
		},
	},
	"oci_service_gateway": {kinds: []kind{
		resource("servicegateway", ServiceCore, "/20160918/serviceGateways/%s"),
	}},
	"oci_vcn": {kinds: []kind{
		resource("vnic", ServiceCore, "/20160918/vnics/%s"),
	}},
	"oci_vcnip": {kinds: []kind{
		resource("subnet", ServiceCore, "/20160918/subnets/%s"),
	}},
}

func (v variant) identifierDimension() string {
	if v.idDimension == "" {
		return resolver.DefaultIdentifierDimension
	}
	return v.idDimension
}

func (v variant) services() []Service {
	var out []Service
	for _, k := range v.kinds {
		out = append(out, k.services...)
	}
	return out
}
