package lineproto

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/influxdata/line-protocol/v2/lineprotocol"

	"mercator-hq/tagstream/pkg/metric"
)

// Encoder writes enriched metrics as line-protocol records with nanosecond
// timestamps. Every record is flushed as soon as it is written.
//
// An Encoder is not safe for concurrent use; the pipeline drives it from a
// single goroutine.
type Encoder struct {
	w *bufio.Writer
}

// NewEncoder creates an encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: bufio.NewWriter(w)}
}

// Encode writes one record per datapoint of m and returns how many records
// were written. Datapoints that cannot be encoded are skipped and reported
// in the returned error; a write failure stops encoding immediately.
func (e *Encoder) Encode(m metric.Enriched) (int, error) {
	tags := m.MergedTags()
	tagKeys := make([]string, 0, len(tags))
	for k, v := range tags {
		if k == "" || v == "" {
			continue
		}
		tagKeys = append(tagKeys, k)
	}
	sort.Strings(tagKeys)

	var (
		written int
		errs    []error
	)
	for i, dp := range m.Datapoints {
		line, err := e.line(m.Name, tagKeys, tags, dp)
		if err != nil {
			errs = append(errs, fmt.Errorf("datapoint %d: %w", i, err))
			continue
		}
		if line == nil {
			continue
		}
		if _, err := e.w.Write(line); err != nil {
			return written, fmt.Errorf("%w: %w", ErrWrite, err)
		}
		if err := e.w.Flush(); err != nil {
			return written, fmt.Errorf("%w: flush: %w", ErrWrite, err)
		}
		written++
	}

	return written, errors.Join(errs...)
}

// line renders a single datapoint. It returns nil when the datapoint has no
// encodable fields.
func (e *Encoder) line(name string, tagKeys []string, tags map[string]string, dp metric.Datapoint) ([]byte, error) {
	fieldKeys := make([]string, 0, len(dp.Fields))
	values := make(map[string]lineprotocol.Value, len(dp.Fields))
	for k, v := range dp.Fields {
		if k == "" {
			continue
		}
		val, ok := lineprotocol.NewValue(normalize(v))
		if !ok {
			continue
		}
		fieldKeys = append(fieldKeys, k)
		values[k] = val
	}
	if len(fieldKeys) == 0 {
		return nil, nil
	}
	sort.Strings(fieldKeys)

	var enc lineprotocol.Encoder
	enc.SetPrecision(lineprotocol.Nanosecond)
	enc.StartLine(name)
	for _, k := range tagKeys {
		enc.AddTag(k, tags[k])
	}
	for _, k := range fieldKeys {
		enc.AddField(k, values[k])
	}
	enc.EndLine(dp.Timestamp)
	if err := enc.Err(); err != nil {
		return nil, err
	}
	return enc.Bytes(), nil
}

// normalize widens Go integer and float kinds to the types accepted by
// lineprotocol.NewValue.
func normalize(v any) any {
	switch x := v.(type) {
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case uint:
		return uint64(x)
	case uint32:
		return uint64(x)
	case float32:
		return float64(x)
	default:
		return v
	}
}
