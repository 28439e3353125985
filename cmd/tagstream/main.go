// Tagstream enriches a stream of OCI monitoring metrics with resource tags.
//
// It reads one line-protocol record per line on standard input, looks up the
// defined and freeform tags of the resource each metric is about, and writes
// one enriched line-protocol record per datapoint on standard output. Logs go
// to standard error.
//
// Usage:
//
//	# Enrich a stream with the default configuration
//	telegraf --once | tagstream run
//
//	# Run with a configuration file and more lookup workers
//	tagstream run --config /etc/tagstream/config.yaml --workers 20
//
//	# Print the effective configuration
//	tagstream validate --config /etc/tagstream/config.yaml
//
//	# Look up the tags of one resource
//	tagstream resolve --namespace oci_compute --dimension resourceId=ocid1.instance.oc1..xyz
package main

import "os"

func main() {
	os.Exit(Execute())
}
