package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cpcf/treegen/engine"
	"github.com/cpcf/treegen/render"
)

func newKeysCommand() *cobra.Command {
	var (
		templates string
		partials  string
		suffixes  []string
	)

	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Compile the templates and print their keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := []engine.Option{engine.WithLogger(loggerFromContext(cmd.Context()))}
			if len(suffixes) > 0 {
				opts = append(opts, engine.WithSuffixes(suffixes...))
			}

			eng, err := engine.Build(engine.BuildParams{
				TemplateRoot: templates,
				PartialsRoot: partials,
			}, opts...)
			if err != nil {
				return err
			}

			for _, key := range eng.TemplateKeys() {
				fmt.Fprintln(cmd.OutOrStdout(), key)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&templates, "templates", "t", "", "Template root directory")
	cmd.Flags().StringVarP(&partials, "partials", "p", "", "Partials root directory")
	cmd.Flags().StringSliceVar(&suffixes, "suffix", nil, "Template file suffixes (default .tmpl)")
	_ = cmd.MarkFlagRequired("templates")

	return cmd
}

func newHelpersCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "helpers",
		Short: "List the helpers available to every template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			registry := render.NewEnvironment().Registry()
			for _, name := range registry.List() {
				fmt.Fprintln(cmd.OutOrStdout(), registry.GetFunctionSignature(name))
			}
			return nil
		},
	}
}
