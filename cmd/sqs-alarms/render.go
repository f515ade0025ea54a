package main

import (
	"bytes"
	"context"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/30Piraten/sqs-alarms/alarms"
	"github.com/30Piraten/sqs-alarms/config"
	"github.com/30Piraten/sqs-alarms/log"
)

func renderCmd(opts *options) *cobra.Command {
	var (
		out   string
		watch bool
	)
	cmd := &cobra.Command{
		Use:          "render",
		Short:        "render the merged template",
		Long:         `render merges the generated alarms into --template, or into an empty template, and writes the JSON to stdout or --out.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case watch:
				return watchRender(cmd.Context(), *opts, out)
			case out != "":
				return renderFile(cmd.Context(), *opts, out)
			default:
				return render(cmd.Context(), *opts, cmd.OutOrStdout())
			}
		},
	}
	fs := cmd.Flags()
	fs.StringVarP(&out, "out", "o", "", "write the template to this file instead of stdout")
	fs.BoolVarP(&watch, "watch", "w", false, "render again whenever the configuration or template changes, needs --out")
	return cmd
}

// renderFile replaces path only once the whole template rendered.
func renderFile(ctx context.Context, opts options, path string) error {
	var buf bytes.Buffer
	if err := render(ctx, opts, &buf); err != nil {
		return err
	}
	return errors.WithStack(os.WriteFile(path, buf.Bytes(), 0o644))
}

func render(ctx context.Context, opts options, w io.Writer) error {
	svc, err := loadService(ctx, opts.Config)
	if err != nil {
		return err
	}

	var base []byte
	if opts.Template != "" {
		base, err = os.ReadFile(opts.Template)
		if err != nil {
			return errors.Wrap(err, "read template")
		}
	}
	tpl, err := alarms.ParseTemplate(base)
	if err != nil {
		return errors.Wrap(err, opts.Template)
	}

	region, err := config.ResolveRegion(ctx, opts.Region, config.Env(config.EnvRegion, ""), svc.Provider.Region)
	if err != nil {
		return err
	}

	groups, err := svc.Select(opts.Queues...)
	if err != nil {
		return err
	}
	generated := alarms.Build(groups, region)
	if err := tpl.Merge(generated...); err != nil {
		return err
	}
	log.Get().Debug("rendered alarms",
		zap.Int("alarms", len(generated)),
		zap.String("region", region))

	body, err := tpl.MarshalIndent()
	if err != nil {
		return errors.WithStack(err)
	}
	if _, err := w.Write(append(body, '\n')); err != nil {
		return errors.WithStack(err)
	}
	return nil
}
