package main

import (
	"context"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/30Piraten/sqs-alarms/alarms"
)

func validateCmd(opts *options) *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:          "validate",
		Short:        "check the alarm configuration",
		Long:         `validate lists configuration that generates but is probably wrong: unrecognized treatMissingData tokens, thresholds without a value and alarms that overwrite each other.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return validate(cmd.Context(), *opts, strict, cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVarP(&strict, "strict", "", false, "fail when there are warnings")
	return cmd
}

func validate(ctx context.Context, opts options, strict bool, w io.Writer) error {
	svc, err := loadService(ctx, opts.Config)
	if err != nil {
		return err
	}

	groups, err := svc.Select(opts.Queues...)
	if err != nil {
		return err
	}
	warnings := alarms.Lint(groups)
	for _, warn := range warnings {
		fmt.Fprintln(w, warn)
	}

	count := 0
	for _, g := range groups {
		count += len(g.Thresholds)
	}
	fmt.Fprintf(w, "%d groups, %d alarms, %d warnings\n", len(groups), count, len(warnings))

	if strict && len(warnings) > 0 {
		return errors.Errorf("%d warnings", len(warnings))
	}
	return nil
}
