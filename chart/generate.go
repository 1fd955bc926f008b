package chart

import (
	"context"
	"fmt"
	"strings"

	helmchart "helm.sh/helm/v3/pkg/chart"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/chartschema/chartschema/ast"
	"github.com/chartschema/chartschema/ir"
	"github.com/chartschema/chartschema/k8sschema"
	"github.com/chartschema/chartschema/log"
	"github.com/chartschema/chartschema/synth"
)

// GenerateSchema loads the chart rooted at path and synthesizes its
// values schema: every template is walked for .Values.* uses, those uses
// are synthesized into a Draft-07 schema (synth.Generate), and --when
// IncludeSubchartValues is set-- each dependency's own schema is composed
// in per spec §4.6. A non-nil Options.Override is applied last.
func GenerateSchema(ctx context.Context, path string, opts Options) (*jsonschema.Schema, []log.Event, error) {
	ch, err := LoadDir(path)
	if err != nil {
		return nil, nil, err
	}

	if len(opts.Override) > 0 {
		// Reject an invalid override before any synthesis work is done.
		if _, err := synth.ApplyOverrideJSON(nil, opts.Override); err != nil {
			return nil, nil, err
		}
	}

	provider := buildProvider(opts)

	schema, events, err := generateForChart(ctx, ch, opts, provider)
	if err != nil {
		return nil, nil, err
	}

	if len(opts.Override) > 0 {
		schema, err = synth.ApplyOverrideJSON(schema, opts.Override)
		if err != nil {
			return nil, nil, err
		}
	}

	return schema, events, nil
}

func generateForChart(ctx context.Context, ch *helmchart.Chart, opts Options, provider k8sschema.Provider) (*jsonschema.Schema, []log.Event, error) {
	defines := ast.NewDefineIndex()

	docs := make(map[string]ast.Node)

	var (
		order  []string
		events []log.Event
	)

	for _, f := range ch.Templates {
		if !isTemplateFile(f.Name) {
			continue
		}

		if !opts.IncludeTests && isTestTemplate(f.Name) {
			continue
		}

		doc, err := defines.AddFileSource(f.Name, f.Data)
		if err != nil {
			// A single malformed template is recoverable: skip it, warn,
			// and keep synthesizing from the rest of the chart.
			events = append(events, log.Warn("chart: skipping template %q: %v", f.Name, err))

			continue
		}

		if doc != nil {
			docs[f.Name] = doc
			order = append(order, f.Name)
		}
	}

	for _, name := range defines.Overwritten() {
		events = append(events, log.Warn("chart: helper %q redefined by a later template file", name))
	}

	var uses []ir.ValueUse

	for _, name := range order {
		fileUses, err := ir.Generate(docs[name], defines)
		if err != nil {
			events = append(events, log.Warn("chart: %v", err))

			continue
		}

		uses = append(uses, fileUses...)
	}

	ir.SortValueUses(uses)

	if pf, ok := provider.(k8sschema.Prefetcher); ok {
		_ = pf.Prefetch(ctx, distinctResources(uses))
	}

	schema, synthEvents := synth.Generate(ctx, uses, provider)
	events = append(events, synthEvents...)

	if opts.IncludeSubchartValues && len(ch.Dependencies()) > 0 {
		deps, depEvents, err := composeDependencies(ctx, ch, opts, provider)
		if err != nil {
			return nil, nil, err
		}

		events = append(events, depEvents...)
		schema = ComposeValues(schema, deps)
	}

	return schema, events, nil
}

func composeDependencies(ctx context.Context, ch *helmchart.Chart, opts Options, provider k8sschema.Provider) ([]Dependency, []log.Event, error) {
	aliases := make(map[string]string, len(ch.Metadata.Dependencies))

	for _, d := range ch.Metadata.Dependencies {
		name := d.Alias
		if name == "" {
			name = d.Name
		}

		aliases[d.Name] = name
	}

	var (
		deps   []Dependency
		events []log.Event
	)

	for _, sub := range ch.Dependencies() {
		if sub.Metadata == nil {
			continue
		}

		subSchema, subEvents, err := generateForChart(ctx, sub, opts, provider)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: subchart %q: %w", ErrIO, sub.Metadata.Name, err)
		}

		events = append(events, subEvents...)

		name, ok := aliases[sub.Metadata.Name]
		if !ok {
			name = sub.Metadata.Name
		}

		deps = append(deps, Dependency{AliasOrName: name, Schema: subSchema})
	}

	return deps, events, nil
}

// distinctResources collects every unique resource referenced across
// uses, for a provider's bounded-concurrent cache warm-up ahead of
// synthesis's own sequential lookups.
func distinctResources(uses []ir.ValueUse) []ir.ResourceRef {
	seen := make(map[string]bool)

	var out []ir.ResourceRef

	for _, u := range uses {
		if u.Resource == nil || u.Resource.Empty() {
			continue
		}

		key := u.Resource.APIVersion + "/" + u.Resource.Kind

		if seen[key] {
			continue
		}

		seen[key] = true

		out = append(out, *u.Resource)
	}

	return out
}

func isTemplateFile(name string) bool {
	lower := strings.ToLower(name)

	return strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml") || strings.HasSuffix(lower, ".tpl")
}

func isTestTemplate(name string) bool {
	return strings.Contains(strings.ToLower(name), "templates/tests/")
}

func buildProvider(opts Options) k8sschema.Provider {
	if opts.DisableK8sSchemas {
		return k8sschema.NullProvider{}
	}

	var providers []k8sschema.Provider

	if opts.CRDCatalogDir != "" {
		providers = append(providers, k8sschema.NewLocalProvider(opts.CRDCatalogDir))
	}

	k8sVersion := opts.K8sVersion
	if k8sVersion == "" {
		k8sVersion = defaultK8sVersion
	}

	providers = append(providers,
		k8sschema.NewUpstreamProvider(k8sVersion, opts.K8sSchemaCacheDir, opts.AllowNet),
		k8sschema.NewCRDCatalogProvider(opts.CRDCatalogCacheDir, opts.AllowNet),
	)

	return k8sschema.NewChainProvider(providers...)
}

const defaultK8sVersion = "v1.35.0"
