package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newVarsCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "vars [template]",
		Short: "List the root variables a template uses",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := root.newEngine()
			if err != nil {
				return err
			}
			source, name, err := readTemplate(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			engine.SetSourceName(name)

			used, err := engine.UsedVariables(source)
			if err != nil {
				return err
			}
			if len(used) > 0 {
				fmt.Fprintln(cmd.OutOrStdout(), strings.Join(used, "\n"))
			}
			return nil
		},
	}
}

func newRenderersCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "renderers",
		Short: "List the named renderers available as ${value;name}",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := root.newEngine()
			if err != nil {
				return err
			}
			for _, r := range engine.AllNamedRenderers() {
				fmt.Fprintln(cmd.OutOrStdout(), r.Name())
			}
			return nil
		},
	}
}
