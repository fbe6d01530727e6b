package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"fakellm/internal/resolver"
)

func buildModelsCmd(_ *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the built-in model catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range resolver.CatalogNames() {
				fmt.Println(name)
			}
			return nil
		},
	}
}
