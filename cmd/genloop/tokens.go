package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"genloop/internal/session"
)

func newTokensCmd(a *app) *cobra.Command {
	var (
		model      string
		addSpecial bool
	)
	cmd := &cobra.Command{
		Use:   "tokens TEXT...",
		Short: "Count the tokens of TEXT with the model's tokenizer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.sessionParams(model)
			if err != nil {
				return err
			}
			p.OnToken = func(session.Event) bool { return false }
			sess, err := session.Open(a.backend(), p, session.WithLogger(a.log))
			if err != nil {
				return err
			}
			defer sess.Close()
			n, err := sess.CountTokens(strings.Join(args, " "), addSpecial)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}
	cmd.Flags().StringVarP(&model, "model", "m", "", "Model id or .gguf path")
	cmd.Flags().BoolVar(&addSpecial, "add-special", false, "Add BOS and parse special tokens")
	return cmd
}
