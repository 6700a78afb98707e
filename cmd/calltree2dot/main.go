package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"calltree2dot/internal/convert"
	"calltree2dot/internal/logging"
	"calltree2dot/internal/policy"
)

type options struct {
	ConfigPath string
	Modules    []string
	LogLevel   string
}

func (o *options) bind(flags *pflag.FlagSet) {
	flags.StringVarP(&o.ConfigPath, "config", "c", "", "Path to a YAML policy file (modules, ignores, ignore_prefixes)")
	flags.StringSliceVarP(&o.Modules, "module", "m", nil, "Watched module name; repeat to watch several (overrides the policy file)")
	flags.StringVar(&o.LogLevel, "log-level", "info", "Log level: debug, info, warn or error")
}

func (o *options) policy() (*policy.Policy, error) {
	p := policy.Default()
	if o.ConfigPath != "" {
		var err error
		if p, err = policy.Load(o.ConfigPath); err != nil {
			return nil, err
		}
	}
	if len(o.Modules) > 0 {
		p = p.WithModules(o.Modules)
	}
	return p, nil
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "calltree2dot <calltree.csv>",
		Short: "Convert a sampled call-tree export into a Graphviz call graph",
		Long: "Reads a call-tree CSV export (Level, Function Name, Inclusive/Exclusive Samples, " +
			"Inclusive/Exclusive Samples %, Module Name) and writes <calltree.csv>.dot.",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(_ *cobra.Command, args []string) error {
			logger, err := logging.NewLogger(opts.LogLevel)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			p, err := opts.policy()
			if err != nil {
				return err
			}

			_, err = convert.ConvertFile(args[0], p, logger)
			return err
		},
	}
	opts.bind(cmd.Flags())
	_ = cmd.MarkFlagFilename("config", "yaml", "yml")

	return cmd
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "calltree2dot: %v\n", err)
		os.Exit(1)
	}
}
