package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/bamsammich/cpx/internal/config"
)

func newConfigCmd(stdout io.Writer) *cobra.Command {
	var path string

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the cpx configuration file",
		Args:  cobra.NoArgs,
	}
	configCmd.PersistentFlags().StringVar(&path, "file", "", "config file (default: "+config.Path()+")")

	resolve := func() string {
		if path != "" {
			return path
		}
		return config.Path()
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			p := resolve()
			if err := config.Init(p, force); err != nil {
				return err
			}
			fmt.Fprintf(stdout, "wrote %s\n", p)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			cfg, err := config.LoadFile(resolve())
			if err != nil {
				return err
			}
			return config.Encode(stdout, cfg)
		},
	}

	pathCmd := &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file path",
		Args:  cobra.NoArgs,
		Run: func(*cobra.Command, []string) {
			fmt.Fprintln(stdout, resolve())
		},
	}

	configCmd.AddCommand(initCmd, showCmd, pathCmd)
	return configCmd
}
