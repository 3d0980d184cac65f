package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newScenariosCmd() *cobra.Command {
	scenariosCmd := &cobra.Command{
		Use:   "scenarios",
		Short: "List the built-in scenarios.",
		Long: "`scenarios` lists the built-in scenarios. With --show, it " +
			"prints them as YAML, ready to be edited and run with " +
			"`run --scenario FILE`.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			show, _ := cmd.Flags().GetBool("show")

			for _, name := range BuiltinScenarioNames() {
				if !show {
					fmt.Fprintln(cmd.OutOrStdout(), name)
					continue
				}

				s, _ := BuiltinScenario(name)

				data, err := yaml.Marshal(s)
				if err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "---\n%s", data)
			}

			return nil
		},
	}

	scenariosCmd.Flags().Bool("show", false, "Print the scenarios as YAML")

	return scenariosCmd
}
