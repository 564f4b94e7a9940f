package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"lmrun/internal/locator"
)

var resolvePull bool

var resolveCmd = &cobra.Command{
	Use:   "resolve <model>",
	Short: "Print the local file backing a model identifier",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		if locator.IsDirectPath(id) {
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		}
		loc := newLocator(cmd.ErrOrStderr())
		defer loc.Close()
		var (
			path string
			err  error
		)
		if resolvePull {
			path, err = loc.EnsureAvailable(cmd.Context(), id)
		} else {
			path, err = loc.Resolve(id)
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

var pullCmd = &cobra.Command{
	Use:   "pull <model>",
	Short: "Fetch a model through the registry tool unless it is already local",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		loc := newLocator(cmd.ErrOrStderr())
		defer loc.Close()
		path, err := loc.EnsureAvailable(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

func init() {
	resolveCmd.Flags().BoolVar(&resolvePull, "pull", false, "fetch the model when it is not found locally")
	rootCmd.AddCommand(resolveCmd, pullCmd)
}
