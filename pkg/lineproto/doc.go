// Package lineproto converts between line-protocol records and the metric
// model.
//
// # Input
//
// Each input record carries a string field named "value" holding a JSON
// metric descriptor:
//
//	oci_metrics value="{\"namespace\":\"oci_compute\",\"dimensions\":{\"resourceId\":\"ocid1.instance.abc\"},\"datapoints\":[{\"timestamp\":1700000000,\"CpuUtilization\":42.0}],\"metadata\":{\"region\":\"us-1\"}}"
//
// The descriptor's optional "name" becomes the output measurement; without it
// the input measurement is reused. Numeric datapoint timestamps are scaled to
// nanoseconds according to the configured Precision (PrecisionAuto infers
// seconds, milliseconds, microseconds or nanoseconds from the magnitude).
// RFC 3339 string timestamps are accepted as well.
//
// # Output
//
// The Encoder writes one record per datapoint. Tags are the union of the
// descriptor metadata, its dimensions and the resolved resource tags, with
// later sources overriding earlier ones. Tags and fields are written in key
// order so identical input always produces identical output.
package lineproto
