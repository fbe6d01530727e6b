package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"fakellm/internal/resolver"
)

func buildPullCmd(opts *rootOptions) *cobra.Command {
	var cacheDir string

	cmd := &cobra.Command{
		Use:   "pull <model>...",
		Short: "Download model files without starting a server",
		Example: "  fakellm pull gemma-3-270m\n" +
			"  fakellm pull unsloth/gemma-3-1b-it-GGUF",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger(opts.LogLevel)
			res := resolver.New(resolver.Config{CacheDir: cacheDir, Logger: log})
			for _, name := range args {
				spec, err := res.Resolve(cmd.Context(), name)
				if err != nil {
					return err
				}
				art, err := res.Download(cmd.Context(), spec)
				if err != nil {
					return err
				}
				fmt.Printf("%s\t%s\n", art.Name, art.Path)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&cacheDir, "cache-dir", "", "Directory for downloaded model files")
	return cmd
}
