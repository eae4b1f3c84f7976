package cli

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var version = "0.1.0"

// envPrefix prefixes every environment variable that can stand in for a flag.
const envPrefix = "SHOPLOAD"

// RootCmd represents the base command when called without any subcommands
var RootCmd = NewRootCmd()

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "shopload",
		Short:   "Load generator that simulates e-commerce shoppers",
		Version: version,
		Long: `shopload drives an e-commerce HTTP API with simulated shopper sessions.

Each session registers a fresh user, logs in, browses the catalog, fills and
trims a cart, places an order (and sometimes cancels it) and logs out, against
one backend taken round-robin from the targets file. Every call is written to
a request log for later analysis.

Every flag can also be set from the environment, e.g. SHOPLOAD_WORKERS=8.`,
		SilenceUsage: true,
		Run: func(cmd *cobra.Command, args []string) {
			// If no subcommand is provided, print help
			cmd.Help()
		},
	}

	root.AddCommand(newRunCmd())
	root.AddCommand(newValidateCmd())
	return root
}

// ExecuteContext runs the root command. Cancelling ctx stops a running
// load gracefully. This is called by main.main().
func ExecuteContext(ctx context.Context) error {
	return RootCmd.ExecuteContext(ctx)
}

// bindFlags returns a viper instance that resolves each of flags from the
// command line first and SHOPLOAD_<FLAG> second.
func bindFlags(flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(flags); err != nil {
		return nil, err
	}
	return v, nil
}
