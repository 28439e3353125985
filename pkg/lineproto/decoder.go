package lineproto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/influxdata/line-protocol/v2/lineprotocol"

	"mercator-hq/tagstream/pkg/metric"
)

// PayloadField is the line-protocol field carrying the JSON metric descriptor.
const PayloadField = "value"

// Precision is the granularity of numeric datapoint timestamps in the input.
type Precision string

const (
	// PrecisionAuto infers the granularity from the magnitude of the value.
	PrecisionAuto Precision = "auto"
	// PrecisionSecond treats numeric timestamps as Unix seconds.
	PrecisionSecond Precision = "s"
	// PrecisionMillisecond treats numeric timestamps as Unix milliseconds.
	PrecisionMillisecond Precision = "ms"
	// PrecisionMicrosecond treats numeric timestamps as Unix microseconds.
	PrecisionMicrosecond Precision = "us"
	// PrecisionNanosecond treats numeric timestamps as Unix nanoseconds.
	PrecisionNanosecond Precision = "ns"
)

// ParsePrecision validates a precision name. The empty string means auto.
func ParsePrecision(s string) (Precision, error) {
	switch p := Precision(strings.ToLower(s)); p {
	case "", PrecisionAuto:
		return PrecisionAuto, nil
	case PrecisionSecond, PrecisionMillisecond, PrecisionMicrosecond, PrecisionNanosecond:
		return p, nil
	default:
		return PrecisionAuto, fmt.Errorf("unknown timestamp precision %q (supported: auto, s, ms, us, ns)", s)
	}
}

// Magnitude bounds used by PrecisionAuto to pick the unit. A timestamp must
// also fit in int64 nanoseconds once scaled, which ends in April 2262; later
// values are rejected rather than wrapped.
const (
	maxSeconds      = 1e11
	maxMilliseconds = 1e14
	maxMicroseconds = 1e17
)

// Decoder turns input lines into metrics. It holds no mutable state and is
// safe for concurrent use.
type Decoder struct {
	precision Precision
}

// NewDecoder creates a decoder interpreting numeric timestamps with the given
// precision.
func NewDecoder(precision Precision) *Decoder {
	if precision == "" {
		precision = PrecisionAuto
	}
	return &Decoder{precision: precision}
}

// descriptor is the JSON document carried in the payload field.
type descriptor struct {
	Name       string           `json:"name"`
	Namespace  string           `json:"namespace"`
	Dimensions map[string]any   `json:"dimensions"`
	Datapoints []map[string]any `json:"datapoints"`
	Metadata   map[string]any   `json:"metadata"`
}

// Decode parses one line-protocol record. Every failure is a *DecodeError.
func (d *Decoder) Decode(line []byte) (metric.RawMetric, error) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return metric.RawMetric{}, decodeErr(nil, "empty line")
	}

	measurement, payload, err := readPayload(line)
	if err != nil {
		return metric.RawMetric{}, err
	}

	var desc descriptor
	dec := json.NewDecoder(strings.NewReader(payload))
	dec.UseNumber()
	if err := dec.Decode(&desc); err != nil {
		return metric.RawMetric{}, decodeErr(err, "invalid %s payload", PayloadField)
	}

	name := desc.Name
	if name == "" {
		name = measurement
	}

	dims, err := stringMap(desc.Dimensions)
	if err != nil {
		return metric.RawMetric{}, decodeErr(err, "invalid dimensions")
	}
	meta, err := stringMap(desc.Metadata)
	if err != nil {
		return metric.RawMetric{}, decodeErr(err, "invalid metadata")
	}

	points := make([]metric.Datapoint, 0, len(desc.Datapoints))
	for i, raw := range desc.Datapoints {
		dp, err := d.datapoint(raw)
		if err != nil {
			return metric.RawMetric{}, decodeErr(err, "datapoint %d", i)
		}
		points = append(points, dp)
	}

	return metric.RawMetric{
		Name:       name,
		Namespace:  desc.Namespace,
		Dimensions: dims,
		Datapoints: points,
		Metadata:   meta,
	}, nil
}

// readPayload extracts the measurement name and the string payload field.
func readPayload(line []byte) (string, string, error) {
	dec := lineprotocol.NewDecoderWithBytes(line)
	if !dec.Next() {
		return "", "", decodeErr(nil, "no record in line")
	}

	m, err := dec.Measurement()
	if err != nil {
		return "", "", decodeErr(err, "malformed measurement")
	}
	measurement := string(m)

	for {
		key, _, err := dec.NextTag()
		if err != nil {
			return "", "", decodeErr(err, "malformed tag")
		}
		if key == nil {
			break
		}
	}

	var (
		payload string
		found   bool
	)
	for {
		key, val, err := dec.NextField()
		if err != nil {
			return "", "", decodeErr(err, "malformed field")
		}
		if key == nil {
			break
		}
		if string(key) != PayloadField {
			continue
		}
		if val.Kind() != lineprotocol.String {
			return "", "", decodeErr(nil, "field %q is %v, want string", PayloadField, val.Kind())
		}
		payload = val.StringV()
		found = true
	}
	if !found {
		return "", "", decodeErr(nil, "missing required field %q", PayloadField)
	}

	return measurement, payload, nil
}

func (d *Decoder) datapoint(raw map[string]any) (metric.Datapoint, error) {
	tsRaw, ok := raw["timestamp"]
	if !ok || tsRaw == nil {
		return metric.Datapoint{}, fmt.Errorf("missing timestamp")
	}
	ts, err := d.timestamp(tsRaw)
	if err != nil {
		return metric.Datapoint{}, err
	}

	fields := make(map[string]any, len(raw)-1)
	for k, v := range raw {
		if k == "timestamp" || v == nil {
			continue
		}
		fv, err := fieldValue(v)
		if err != nil {
			return metric.Datapoint{}, fmt.Errorf("field %q: %w", k, err)
		}
		fields[k] = fv
	}

	return metric.Datapoint{Timestamp: ts, Fields: fields}, nil
}

func (d *Decoder) timestamp(v any) (time.Time, error) {
	switch ts := v.(type) {
	case json.Number:
		if i, err := ts.Int64(); err == nil {
			return d.fromInt(i)
		}
		f, err := ts.Float64()
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid timestamp %q", ts.String())
		}
		return d.fromFloat(f)
	case string:
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			return t, nil
		}
		if i, err := strconv.ParseInt(ts, 10, 64); err == nil {
			return d.fromInt(i)
		}
		return time.Time{}, fmt.Errorf("invalid timestamp %q", ts)
	default:
		return time.Time{}, fmt.Errorf("invalid timestamp type %T", v)
	}
}

// unit returns the duration of one timestamp unit for the value.
func (d *Decoder) unit(magnitude float64) time.Duration {
	switch d.precision {
	case PrecisionSecond:
		return time.Second
	case PrecisionMillisecond:
		return time.Millisecond
	case PrecisionMicrosecond:
		return time.Microsecond
	case PrecisionNanosecond:
		return time.Nanosecond
	}

	magnitude = math.Abs(magnitude)
	switch {
	case magnitude < maxSeconds:
		return time.Second
	case magnitude < maxMilliseconds:
		return time.Millisecond
	case magnitude < maxMicroseconds:
		return time.Microsecond
	default:
		return time.Nanosecond
	}
}

func (d *Decoder) fromInt(i int64) (time.Time, error) {
	unit := int64(d.unit(float64(i)))
	if i > math.MaxInt64/unit || i < math.MinInt64/unit {
		return time.Time{}, fmt.Errorf("%w: %d at %s precision", ErrTimestampRange, i, time.Duration(unit))
	}
	return time.Unix(0, i*unit).UTC(), nil
}

func (d *Decoder) fromFloat(f float64) (time.Time, error) {
	unit := d.unit(f)
	ns := math.Round(f * float64(unit))
	// float64(math.MaxInt64) rounds up to 2^63, which is already too large.
	if math.IsNaN(ns) || ns >= math.MaxInt64 || ns < math.MinInt64 {
		return time.Time{}, fmt.Errorf("%w: %g at %s precision", ErrTimestampRange, f, unit)
	}
	return time.Unix(0, int64(ns)).UTC(), nil
}

// fieldValue converts a JSON value into a line-protocol compatible scalar.
// Integral JSON numbers stay integers.
func fieldValue(v any) (any, error) {
	switch x := v.(type) {
	case json.Number:
		s := x.String()
		if !strings.ContainsAny(s, ".eE") {
			if i, err := x.Int64(); err == nil {
				return i, nil
			}
		}
		f, err := x.Float64()
		if err != nil {
			return nil, err
		}
		return f, nil
	case bool, string:
		return x, nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

// stringMap flattens a JSON object of scalars into strings. Null values are
// dropped.
func stringMap(in map[string]any) (map[string]string, error) {
	out := make(map[string]string, len(in))
	for k, v := range in {
		switch x := v.(type) {
		case nil:
		case string:
			out[k] = x
		case json.Number:
			out[k] = x.String()
		case bool:
			out[k] = strconv.FormatBool(x)
		default:
			return nil, fmt.Errorf("key %q: unsupported value type %T", k, v)
		}
	}
	return out, nil
}
