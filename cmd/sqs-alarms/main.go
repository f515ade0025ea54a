package main

import (
	"context"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/30Piraten/sqs-alarms/config"
	"github.com/30Piraten/sqs-alarms/log"
)

type options struct {
	Config   string
	Template string
	Region   string
	Queues   []string
	Debug    bool
}

func rootCmd() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:          "sqs-alarms",
		Short:        "generate CloudWatch alarms for SQS queues",
		Long:         `sqs-alarms renders the CloudWatch alarms configured under custom.sqs-alarms and merges them into a CloudFormation template.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadDotEnv(); err != nil {
				return err
			}
			log.SetDebug(opts.Debug || config.EnvBool("DEBUG"))
			if opts.Config == "" {
				opts.Config = config.Env(config.EnvSource, config.DefaultSource)
			}
			return nil
		},
	}

	fs := cmd.PersistentFlags()
	fs.StringVarP(&opts.Config, "config", "c", "", "alarm configuration: a path, s3://bucket/key or secretsmanager://secret-id")
	fs.StringVarP(&opts.Template, "template", "t", "", "CloudFormation template to merge into")
	fs.StringVarP(&opts.Region, "region", "r", "", "region used in topic ARNs")
	fs.StringArrayVarP(&opts.Queues, "queue", "q", nil, "only groups whose queue matches this glob, repeatable")
	fs.BoolVarP(&opts.Debug, "debug", "", false, "enable debug logging")

	cmd.AddCommand(renderCmd(&opts), validateCmd(&opts))
	return cmd
}

// loadService reads the alarm configuration, loading AWS credentials only when
// the source lives in AWS.
func loadService(ctx context.Context, uri string) (*config.Service, error) {
	opener := &config.Opener{}
	if strings.HasPrefix(uri, "s3://") || strings.HasPrefix(uri, "secretsmanager://") {
		cfg, err := config.LoadAWS(ctx, "")
		if err != nil {
			return nil, err
		}
		opener = config.NewOpener(cfg)
	}
	svc, err := opener.Load(ctx, uri)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", uri)
	}
	return svc, nil
}

func main() {
	if err := rootCmd().ExecuteContext(context.Background()); err != nil {
		log.Get().Error("sqs-alarms failed", zap.Error(err))
		_ = log.Get().Sync()
		os.Exit(1)
	}
}
