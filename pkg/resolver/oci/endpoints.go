package oci

import (
	"fmt"
	"sort"
	"strings"
)

// DefaultDomain is the second-level domain of the commercial OCI realm.
const DefaultDomain = "oraclecloud.com"

// Service names one OCI control-plane API.
type Service string

// Services used by the resolver variants.
const (
	ServiceCore            Service = "core"
	ServiceLoadBalancer    Service = "loadbalancer"
	ServiceAPIGateway      Service = "apigateway"
	ServiceBastion         Service = "bastion"
	ServiceFileStorage     Service = "filestorage"
	ServiceLogging         Service = "logging"
	ServiceManagementAgent Service = "managementagent"
	ServiceObjectStorage   Service = "objectstorage"
	ServiceResourceSearch  Service = "resourcesearch"
	ServiceContainerEngine Service = "containerengine"
	ServicePostgreSQL      Service = "postgresql"
	ServiceVaults          Service = "vaults"
	ServiceConnectorHub    Service = "serviceconnector"
)

// hostTemplates maps each service to its regional endpoint.
var hostTemplates = map[Service]string{
	ServiceCore:            "https://iaas.{region}.{domain}",
	ServiceLoadBalancer:    "https://iaas.{region}.{domain}",
	ServiceAPIGateway:      "https://apigateway.{region}.oci.{domain}",
	ServiceBastion:         "https://bastion.{region}.oci.{domain}",
	ServiceFileStorage:     "https://filestorage.{region}.{domain}",
	ServiceLogging:         "https://logging.{region}.oci.{domain}",
	ServiceManagementAgent: "https://management-agent.{region}.oci.{domain}",
	ServiceObjectStorage:   "https://objectstorage.{region}.{domain}",
	ServiceResourceSearch:  "https://query.{region}.{domain}",
	ServiceContainerEngine: "https://containerengine.{region}.{domain}",
	ServicePostgreSQL:      "https://postgresql.{region}.oci.{domain}",
	ServiceVaults:          "https://vaults.{region}.oci.{domain}",
	ServiceConnectorHub:    "https://service-connector-hub.{region}.oci.{domain}",
}

// Services returns every known service in sorted order.
func Services() []Service {
	out := make([]Service, 0, len(hostTemplates))
	for s := range hostTemplates {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ParseService validates a service name.
func ParseService(name string) (Service, error) {
	s := Service(strings.ToLower(name))
	if _, ok := hostTemplates[s]; !ok {
		return "", fmt.Errorf("unknown OCI service %q", name)
	}
	return s, nil
}

// Endpoints resolves service base URLs for one region.
type Endpoints struct {
	// Region is the OCI region identifier, e.g. "us-ashburn-1".
	Region string

	// Domain defaults to DefaultDomain.
	Domain string

	// Overrides replaces the computed base URL of individual services.
	Overrides map[Service]string
}

// BaseURL returns the base URL of s without a trailing slash.
func (e Endpoints) BaseURL(s Service) (string, error) {
	if u, ok := e.Overrides[s]; ok && u != "" {
		return strings.TrimRight(u, "/"), nil
	}

	tmpl, ok := hostTemplates[s]
	if !ok {
		return "", fmt.Errorf("unknown OCI service %q", s)
	}
	if e.Region == "" {
		return "", fmt.Errorf("no region configured for OCI service %q", s)
	}

	domain := e.Domain
	if domain == "" {
		domain = DefaultDomain
	}
	return strings.NewReplacer("{region}", e.Region, "{domain}", domain).Replace(tmpl), nil
}
