package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/example/gymbook/internal/config"
	"github.com/example/gymbook/internal/scheduler"
)

var (
	Version   = "dev"
	CommitSHA = "none"
	BuildDate = "unknown"
)

type rootOptions struct {
	configFile string
}

func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:          "gymbook",
		Short:        "Books a gym floor slot a week ahead on chosen weekdays, retrying on failure",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "config file (yaml, toml or json)")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newKeysCmd())
	root.AddCommand(newHashPasswordCmd())
	root.AddCommand(newRunCmd(opts))
	root.AddCommand(newOnceCmd(opts))
	root.AddCommand(newPingCmd(opts))
	root.AddCommand(newSlotsCmd(opts))
	root.AddCommand(newHistoryCmd(opts))

	return root
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// load reads configuration through v so commands can bind their own flags
// first.
func (o *rootOptions) load(v *viper.Viper) (config.Config, error) {
	if v == nil {
		v = config.New()
	}
	return config.Load(v, o.configFile)
}

func taskConfig(cfg config.Config) (scheduler.Config, error) {
	loc, err := cfg.Location()
	if err != nil {
		return scheduler.Config{}, err
	}
	return scheduler.Config{
		ClubID:     cfg.ClubID,
		Weekdays:   cfg.ParsedWeekdays(),
		TargetTime: cfg.TargetTime,
		Studio:     cfg.Studio,
		DaysAhead:  cfg.DaysAhead,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		DayOffset:  cfg.DayOffset,
		Location:   loc,
		Username:   cfg.Username,
		Password:   cfg.Password,
	}, nil
}
