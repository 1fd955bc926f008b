// Package main provides the CLI entry point for values-schema, a tool that
// synthesizes a JSON Schema (Draft 7) for a Helm chart's values.yaml by
// walking its templates for .Values references.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/chartschema/chartschema/chart"
	"github.com/chartschema/chartschema/log"
	"github.com/chartschema/chartschema/profile"
	"github.com/chartschema/chartschema/version"
)

const allowNetEnvVar = "HELM_SCHEMA_ALLOW_NET"

// cliFlags holds the values-schema-specific flag values, distinct from the
// shared log/profile Config flags registered alongside them.
type cliFlags struct {
	k8sVersion       string
	k8sSchemaCache   string
	offline          bool
	noK8sSchemas     bool
	crdCatalog       string
	excludeTests     bool
	noSubchartValues bool
	override         string
	compact          bool
	output           string
}

func main() {
	flags := &cliFlags{}
	logCfg := log.NewConfig()
	profileCfg := profile.NewConfig()

	rootCmd := &cobra.Command{
		Use:     "values-schema <chart-dir> [flags]",
		Short:   "Synthesize a JSON Schema for a Helm chart's values.yaml",
		Version: version.Version,
		Args:    cobra.ExactArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(_ *cobra.Command, args []string) error {
			return run(flags, logCfg, profileCfg, args[0])
		},
	}

	registerFlags(rootCmd, flags)
	logCfg.RegisterFlags(rootCmd.Flags())
	profileCfg.RegisterFlags(rootCmd.Flags())

	if err := logCfg.RegisterCompletions(rootCmd); err != nil {
		fmt.Fprintf(os.Stderr, "register completions: %v\n", err)
	}

	if err := profileCfg.RegisterCompletions(rootCmd); err != nil {
		fmt.Fprintf(os.Stderr, "register completions: %v\n", err)
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func registerFlags(cmd *cobra.Command, f *cliFlags) {
	flags := cmd.Flags()
	flags.StringVar(&f.k8sVersion, "k8s-version", "v1.35.0", "kubernetes-json-schema release to resolve built-in resource schemas against")
	flags.StringVar(&f.k8sSchemaCache, "k8s-schema-cache", "", "override the on-disk cache directory for upstream resource schemas")
	flags.BoolVar(&f.offline, "offline", false, "never fetch a schema over the network, even on a cache miss")
	flags.BoolVar(&f.noK8sSchemas, "no-k8s-schemas", false, "skip kubernetes resource schema resolution entirely")
	flags.StringVar(&f.crdCatalog, "crd-catalog", "", "offline directory of CRD schemas, consulted ahead of the datreeio catalog")
	flags.BoolVar(&f.excludeTests, "exclude-tests", false, "skip templates under templates/tests/")
	flags.BoolVar(&f.noSubchartValues, "no-subchart-values", false, "don't recurse into chart dependencies")
	flags.StringVar(&f.override, "override", "", "YAML or JSON file deep-merged onto the synthesized schema")
	flags.BoolVar(&f.compact, "compact", false, "write compact JSON instead of indented")
	flags.StringVarP(&f.output, "output", "o", "", "write the schema to this path instead of stdout")
}

func run(f *cliFlags, logCfg *log.Config, profileCfg *profile.Config, chartDir string) error {
	pub := log.NewPublisher()
	defer pub.Close()

	handler, err := logCfg.NewHandler(io.MultiWriter(os.Stderr, pub))
	if err != nil {
		return err
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	profiler := profileCfg.NewProfiler()

	if err := profiler.Start(); err != nil {
		return err
	}
	defer func() {
		if stopErr := profiler.Stop(); stopErr != nil {
			logger.Error("stopping profiler", "error", stopErr)
		}
	}()

	opts := chart.Options{
		IncludeTests:          !f.excludeTests,
		IncludeSubchartValues: !f.noSubchartValues,
		K8sVersion:            f.k8sVersion,
		K8sSchemaCacheDir:     f.k8sSchemaCache,
		AllowNet:              allowNet(f.offline),
		DisableK8sSchemas:     f.noK8sSchemas,
		CRDCatalogDir:         f.crdCatalog,
	}

	if f.override != "" {
		data, err := os.ReadFile(f.override)
		if err != nil {
			return fmt.Errorf("reading override file: %w", err)
		}

		jsonData, err := yaml.YAMLToJSON(data)
		if err != nil {
			return fmt.Errorf("parsing override file: %w", err)
		}

		opts.Override = jsonData
	}

	schema, events, err := chart.GenerateSchema(context.Background(), chartDir, opts)
	if err != nil {
		return err
	}

	for _, ev := range events {
		logger.Warn(ev.Message)
	}

	var out []byte
	if f.compact {
		out, err = json.Marshal(schema)
	} else {
		out, err = json.MarshalIndent(schema, "", "  ")
	}

	if err != nil {
		return fmt.Errorf("encoding schema: %w", err)
	}

	out = append(out, '\n')

	if f.output == "" || f.output == "-" {
		_, err = os.Stdout.Write(out)
	} else {
		err = os.WriteFile(f.output, out, 0o644)
	}

	if err != nil {
		return fmt.Errorf("writing schema: %w", err)
	}

	return nil
}

// allowNet resolves the effective network-fetch permission: the --offline
// flag forces it off unconditionally; otherwise HELM_SCHEMA_ALLOW_NET's
// truthiness decides, per spec.
func allowNet(offline bool) bool {
	if offline {
		return false
	}

	v, ok := os.LookupEnv(allowNetEnvVar)
	if !ok {
		return false
	}

	truthy, err := strconv.ParseBool(v)
	if err != nil {
		return false
	}

	return truthy
}
