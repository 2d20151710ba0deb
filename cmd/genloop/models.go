package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"genloop/internal/common/fsutil"
	"genloop/internal/registry"
)

// resolveModel accepts an existing file path or a model id from dir.
func resolveModel(dir, model string) (string, error) {
	if p, err := fsutil.Resolve(model); err == nil && fsutil.PathExists(p) {
		return p, nil
	}
	models, err := registry.LoadDir(dir)
	if err != nil {
		return "", err
	}
	m, ok := registry.Find(models, model)
	if !ok {
		return "", fmt.Errorf("model %q not found in %s", model, dir)
	}
	return m.Path, nil
}

func newModelsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List *.gguf models in the models directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			models, err := registry.LoadDir(a.cfg.ModelsDir)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tQUANT\tSIZE")
			for _, m := range models {
				fmt.Fprintf(tw, "%s\t%s\t%.1f GiB\n", m.ID, m.Quant, float64(m.SizeBytes)/(1<<30))
			}
			if len(models) == 0 {
				fmt.Fprintf(os.Stderr, "no models in %s\n", a.cfg.ModelsDir)
			}
			return tw.Flush()
		},
	}
}
