package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"genloop/internal/snapstore"
)

func newSnapshotCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Manage named snapshots in the configured store",
	}
	withStore := func(fn func(cmd *cobra.Command, st *snapstore.Store, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) (err error) {
			if a.cfg.Snapshots.InMemory {
				return errors.New("snapshot commands need an on-disk store (snapshots.dir)")
			}
			st, err := a.openStore()
			if err != nil {
				return err
			}
			if st == nil {
				return errors.New("no snapshot store configured (snapshots.dir)")
			}
			defer func() { err = multierr.Append(err, st.Close()) }()
			return fn(cmd, st, args)
		}
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List stored snapshots",
		Args:  cobra.NoArgs,
		RunE: withStore(func(cmd *cobra.Command, st *snapstore.Store, _ []string) error {
			recs, err := st.List(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tTOKENS\tLAST\tBYTES\tCREATED")
			for _, r := range recs {
				fmt.Fprintf(tw, "%s\t%d\t%s\t%d\t%s\n", r.Name, r.TokenCount, r.LastTokenType, r.Size, r.CreatedAt.Local().Format("2006-01-02 15:04"))
			}
			return tw.Flush()
		}),
	}
	del := &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a stored snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: withStore(func(cmd *cobra.Command, st *snapstore.Store, args []string) error {
			return st.Delete(cmd.Context(), args[0])
		}),
	}
	export := &cobra.Command{
		Use:   "export NAME FILE",
		Short: "Write a stored snapshot to FILE",
		Args:  cobra.ExactArgs(2),
		RunE: withStore(func(cmd *cobra.Command, st *snapstore.Store, args []string) error {
			rec, err := st.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			f, err := os.Create(args[1])
			if err != nil {
				return err
			}
			return multierr.Append(snapstore.Encode(f, rec), f.Close())
		}),
	}
	imp := &cobra.Command{
		Use:   "import FILE [NAME]",
		Short: "Store the snapshot in FILE, under NAME or its exported name",
		Args:  cobra.RangeArgs(1, 2),
		RunE: withStore(func(cmd *cobra.Command, st *snapstore.Store, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			rec, err := snapstore.Decode(f)
			if err != nil {
				return err
			}
			name := rec.Name
			if len(args) == 2 {
				name = args[1]
			}
			saved, err := st.Put(cmd.Context(), name, rec.State())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %s (%d tokens, %d bytes)\n", saved.Name, saved.TokenCount, saved.Size)
			return nil
		}),
	}
	cmd.AddCommand(list, del, export, imp)
	return cmd
}
