package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cpcf/treegen/config"
	"github.com/cpcf/treegen/engine"
	"github.com/cpcf/treegen/state"
	"github.com/cpcf/treegen/write"
)

type runOptions struct {
	configPath  string
	templates   string
	partials    string
	data        string
	output      string
	prefix      string
	include     []string
	suffixes    []string
	set         map[string]string
	concurrency int
	failMode    string
	strict      bool
	quiet       bool
	dryRun      bool
	manifest    bool
	prune       bool
	atomic      bool
}

func newRunCommand(envs config.Env) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Render every template into the output directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := loggerFromContext(cmd.Context())

			project, err := opts.project(cmd)
			if err != nil {
				return err
			}

			data, err := loadData(project.Data, opts.set)
			if err != nil {
				return err
			}

			failMode, err := engine.ParseFailureMode(project.FailMode)
			if err != nil {
				return err
			}

			engineOpts := []engine.Option{
				engine.WithLogger(logger),
				engine.WithFailureMode(failMode),
				engine.WithConcurrency(project.Concurrency),
			}
			if len(project.Suffixes) > 0 {
				engineOpts = append(engineOpts, engine.WithSuffixes(project.Suffixes...))
			}
			if project.Strict {
				engineOpts = append(engineOpts, engine.WithStrictKeys())
			}
			if project.Atomic {
				writeOpts := write.DefaultOptions()
				writeOpts.Atomic = true
				engineOpts = append(engineOpts, engine.WithWriteOptions(writeOpts))
			}

			eng, err := engine.Build(engine.BuildParams{
				TemplateRoot: project.Templates,
				PartialsRoot: project.Partials,
			}, engineOpts...)
			if err != nil {
				return err
			}

			params := engine.RunParams{
				Data:       data,
				OutputRoot: project.Output,
				FilePrefix: project.Prefix,
				Quiet:      project.Quiet,
				DryRun:     opts.dryRun,
			}
			if len(project.Include) > 0 {
				include, err := engine.IncludePatterns(project.Include...)
				if err != nil {
					return err
				}
				params.Include = include
			}

			report, err := eng.RunWithReport(cmd.Context(), params)
			if report != nil {
				printReport(cmd, report, opts.dryRun)
			}
			if err != nil {
				return err
			}

			if !opts.dryRun && (project.Manifest || project.Prune) {
				root := project.Output
				if root == "" {
					root = engine.DefaultOutputRoot
				}
				return updateManifest(cmd, root, report, project.Prune)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.configPath, "config", "c", envs.Config, "Path to a treegen project file [$TREEGEN_CONFIG]")
	flags.StringVarP(&opts.templates, "templates", "t", "", "Template root directory")
	flags.StringVarP(&opts.partials, "partials", "p", "", "Partials root directory")
	flags.StringVarP(&opts.data, "data", "d", "", "YAML, JSON or .env data file passed to every template")
	flags.StringVarP(&opts.output, "out", "o", "", "Output root directory (default ./out)")
	flags.StringVar(&opts.prefix, "prefix", "", "Prefix prepended to every output file name")
	flags.StringArrayVarP(&opts.include, "include", "i", nil, "Include pattern, repeatable (.dockerignore syntax)")
	flags.StringSliceVar(&opts.suffixes, "suffix", nil, "Template file suffixes (default .tmpl)")
	flags.StringToStringVar(&opts.set, "set", nil, "Top-level data values as key=value, overriding the data file")
	flags.IntVar(&opts.concurrency, "concurrency", 0, "Templates processed in parallel (default number of CPUs)")
	flags.StringVar(&opts.failMode, "fail-mode", "", "fail-fast, fail-at-end or best-effort")
	flags.BoolVar(&opts.strict, "strict", false, "Fail rendering on missing data keys")
	flags.BoolVarP(&opts.quiet, "quiet", "q", false, "Disable run logging")
	flags.BoolVar(&opts.dryRun, "dry-run", false, "Render without writing, listing the files that would be written")
	flags.BoolVar(&opts.atomic, "atomic", false, "Write each file to a temporary file first, then rename it into place")
	flags.BoolVar(&opts.manifest, "manifest", false, "Record the generated files in "+state.ManifestName)
	flags.BoolVar(&opts.prune, "prune", false, "Remove unmodified files generated earlier that this run no longer produces")

	return cmd
}

// project loads the project file, if any, and applies the flags that were
// set explicitly on top of it.
func (o *runOptions) project(cmd *cobra.Command) (*config.Project, error) {
	project := &config.Project{}
	if o.configPath != "" {
		loaded, err := config.LoadProject(o.configPath)
		if err != nil {
			return nil, err
		}
		project = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("templates") {
		project.Templates = o.templates
	}
	if flags.Changed("partials") {
		project.Partials = o.partials
	}
	if flags.Changed("data") {
		project.Data = o.data
	}
	if flags.Changed("out") {
		project.Output = o.output
	}
	if flags.Changed("prefix") {
		project.Prefix = o.prefix
	}
	if flags.Changed("include") {
		project.Include = o.include
	}
	if flags.Changed("suffix") {
		project.Suffixes = o.suffixes
	}
	if flags.Changed("concurrency") {
		project.Concurrency = o.concurrency
	}
	if flags.Changed("fail-mode") {
		project.FailMode = o.failMode
	}
	if flags.Changed("strict") {
		project.Strict = o.strict
	}
	if flags.Changed("quiet") {
		project.Quiet = o.quiet
	}
	if flags.Changed("atomic") {
		project.Atomic = o.atomic
	}
	if flags.Changed("manifest") {
		project.Manifest = o.manifest
	}
	if flags.Changed("prune") {
		project.Prune = o.prune
	}

	if err := project.ExpandHome(); err != nil {
		return nil, err
	}
	if err := project.Validate(); err != nil {
		return nil, fmt.Errorf("invalid run configuration: %w", err)
	}
	return project, nil
}

func loadData(path string, set map[string]string) (map[string]any, error) {
	data := map[string]any{}
	if path != "" {
		loaded, err := config.LoadData(path)
		if err != nil {
			return nil, err
		}
		data = loaded
	}

	for key, value := range set {
		data[key] = value
	}
	return data, nil
}

func printReport(cmd *cobra.Command, report *engine.RunReport, dryRun bool) {
	out := cmd.OutOrStdout()
	if dryRun {
		for _, change := range report.Changes {
			fmt.Fprintf(out, "%s\t%s\t%d bytes\n", styleAction(out, change.Action), change.Path, change.Size)
		}
		return
	}

	for _, output := range report.Written {
		fmt.Fprintln(out, output.Path)
	}
}

// updateManifest records the files written by report. Entries of the
// previous manifest that were not regenerated are pruned when prune is set
// and carried over otherwise, so a later clean still finds them.
func updateManifest(cmd *cobra.Command, root string, report *engine.RunReport, prune bool) error {
	logger := loggerFromContext(cmd.Context())
	manager := state.NewManager(root)

	previous, err := manager.Load()
	if err != nil {
		return err
	}

	current := state.NewManifest()
	for _, output := range report.Written {
		if err := manager.Record(current, output.Key, output.Path); err != nil {
			return err
		}
	}

	stale := state.Stale(previous, current)
	if prune {
		results, err := manager.Remove(stale, false)
		for _, result := range results {
			logger.Info("pruned stale output", "path", result.Entry.Path, "action", result.Action)
			if result.Action == state.ActionKept {
				current.Entries[result.Entry.Path] = result.Entry
			}
		}
		if err != nil {
			return err
		}
	} else {
		for _, entry := range stale {
			current.Entries[entry.Path] = entry
		}
	}

	if err := manager.Save(current); err != nil {
		return err
	}
	logger.Debug("manifest saved", "path", manager.Path(), "entries", len(current.Entries))
	return nil
}
