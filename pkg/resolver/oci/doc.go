// Package oci resolves the tags of Oracle Cloud Infrastructure resources
// reported on by OCI Monitoring metric namespaces.
//
// Each namespace (oci_compute, oci_blockstore, ...) is a variant with an
// identifier dimension and an ordered list of resource kinds. A kind is
// selected when its type segment appears in the resource OCID:
//
//	ocid1.bootvolume.oc1.iad.aaaa  →  GET /20160918/bootVolumes/{id}
//
// Object storage buckets are read in three steps because metrics name a
// bucket by OCID while the bucket API is addressed by namespace and name:
// a structured resource search finds the bucket name, the tenancy's object
// storage namespace is read once, then the bucket itself.
//
// Requests go through a providers.Provider, which signs them and applies the
// retry policy.
package oci
