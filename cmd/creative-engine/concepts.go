package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/creative-engine/internal/catalog"
)

var conceptsCmd = &cobra.Command{
	Use:   "concepts",
	Short: "List the concept catalog",
	Long: `Concepts prints the built-in concept catalog: each concept's ID, name,
and prompt template. Use --save to export the catalog as YAML, edit it, and
feed it back to "run --concepts".`,
	RunE: runConcepts,
}

func init() {
	conceptsCmd.Flags().String("save", "", "write the catalog as YAML to this path")
	conceptsCmd.Flags().Bool("json", false, "output the catalog as JSON")

	rootCmd.AddCommand(conceptsCmd)
}

func runConcepts(cmd *cobra.Command, args []string) error {
	concepts := catalog.List()

	if savePath, _ := cmd.Flags().GetString("save"); savePath != "" {
		if err := catalog.Write(savePath, concepts); err != nil {
			return err
		}
		fmt.Printf("catalog written to %s\n", savePath)
		return nil
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(concepts)
	}

	for _, c := range concepts {
		fmt.Printf("%-10s %-16s %s\n", c.ID, c.Name, c.PromptTemplate)
	}
	return nil
}
