package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mercator-hq/tagstream/pkg/cli"
	"mercator-hq/tagstream/pkg/metric"
	"mercator-hq/tagstream/pkg/resolver"
)

var resolveFlags struct {
	namespace  string
	dimensions []string
	format     string
}

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Look up the tags of one resource",
	Long: `Resolve the tags of a single resource the way the pipeline would for a
metric with the given namespace and dimensions, and print them.

Examples:
  tagstream resolve --namespace oci_compute \
    --dimension resourceId=ocid1.instance.oc1.iad.xyz

  tagstream resolve --namespace oci_logging \
    --dimension resourceId=ocid1.log.oc1.iad.abc \
    --dimension logGroupId=ocid1.loggroup.oc1.iad.def --format json`,
	Args: cobra.NoArgs,
	RunE: resolveTags,
}

func init() {
	rootCmd.AddCommand(resolveCmd)

	resolveCmd.Flags().StringVarP(&resolveFlags.namespace, "namespace", "n", "", "metric namespace, e.g. oci_compute")
	resolveCmd.Flags().StringArrayVarP(&resolveFlags.dimensions, "dimension", "d", nil, "metric dimension as key=value (repeatable)")
	resolveCmd.Flags().StringVarP(&resolveFlags.format, "format", "o", "text", "output format: text, json, yaml")
	_ = resolveCmd.MarkFlagRequired("namespace")
}

func resolveTags(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(resolveFlags.format)
	if err != nil {
		return cli.NewConfigError("--format", "invalid flag", err)
	}
	dims, err := parseDimensions(resolveFlags.dimensions)
	if err != nil {
		return cli.NewConfigError("--dimension", "invalid flag", err)
	}

	a, err := setup(cmd.Context(), "resolve")
	if err != nil {
		return err
	}

	tags, err := a.resolve(cmd.Context(), resolveFlags.namespace, dims)
	if err != nil {
		return cli.NewCommandError("resolve", err)
	}
	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), map[string]string(tags))
}

// resolve looks up the tags of the resource described by namespace and
// dims. A namespace without a resolver and an unknown resource yield an
// empty TagSet, as in the pipeline.
func (a *app) resolve(ctx context.Context, namespace string, dims map[string]string) (metric.TagSet, error) {
	r, err := a.registry.Lookup(namespace)
	if errors.Is(err, resolver.ErrUnsupportedNamespace) {
		a.logger.Warn("no resolver for namespace", "namespace", namespace)
		return metric.TagSet{}, nil
	}
	if err != nil {
		return nil, err
	}

	id, err := r.ResolveIdentifier(namespace, dims)
	if err != nil {
		return nil, fmt.Errorf("dimensions do not identify a resource: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, a.cfg.Pipeline.LookupTimeout)
	defer cancel()
	tags, err := r.FetchTags(ctx, namespace, id)
	if errors.Is(err, resolver.ErrNotFound) {
		a.logger.Warn("resource not found", "namespace", namespace, "resource_id", id.ID)
		return metric.TagSet{}, nil
	}
	return tags, err
}

// parseDimensions parses key=value pairs. Values may contain '='.
func parseDimensions(pairs []string) (map[string]string, error) {
	dims := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("dimension %q is not key=value", p)
		}
		dims[k] = v
	}
	return dims, nil
}
