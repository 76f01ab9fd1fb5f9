package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/vaultdrop/internal/common"
	"github.com/dmitrijs2005/vaultdrop/internal/sharelink"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newListCmd(s *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List the transfers of the logged in account",
		Args:    cobra.NoArgs,
	}
	cmd.RunE = s.withApp(func(cmd *cobra.Command, args []string, app *App) error {
		list, err := app.Transfers.List(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(list) == 0 {
			fmt.Fprintln(out, muted.Sprint("no transfers"))
			return nil
		}

		now := time.Now()
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tFILES\tSIZE\tDOWNLOADS\tEXPIRES\tLOCK")
		for _, t := range list {
			downloads := fmt.Sprintf("%d", t.DownloadCount)
			if t.MaxDownloads > 0 {
				downloads += fmt.Sprintf("/%d", t.MaxDownloads)
			}
			expires := humanize.RelTime(t.ExpiresAt, now, "ago", "from now")
			lock := ""
			if t.HasPassword {
				lock = "password"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
				t.TransferID, strings.Join(t.FileNames, ", "), humanize.IBytes(uint64(t.TotalSize)), downloads, expires, lock)
		}
		return tw.Flush()
	})
	return cmd
}

// transferID accepts a bare id or a share link.
func transferID(arg string) string {
	if strings.HasPrefix(arg, common.TransferIDPrefix) {
		return arg
	}
	if l, err := sharelink.Parse(arg); err == nil {
		return l.TransferID
	}
	return arg
}

func newDeleteCmd(s *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "delete ID|LINK",
		Aliases: []string{"rm"},
		Short:   "Delete a transfer and its stored files",
		Args:    cobra.ExactArgs(1),
	}
	cmd.RunE = s.withApp(func(cmd *cobra.Command, args []string, app *App) error {
		id := transferID(args[0])
		if err := app.Transfers.Delete(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s deleted %s\n", success.Sprint("✓"), highlight.Sprint(id))
		return nil
	})
	return cmd
}

func newHistoryCmd(s *state) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show transfers sent and fetched from this machine",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().IntVarP(&limit, "number", "n", 20, "entries to show, 0 for all")

	cmd.RunE = s.withApp(func(cmd *cobra.Command, args []string, app *App) error {
		entries, err := app.Transfers.History(cmd.Context(), limit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(entries) == 0 {
			fmt.Fprintln(out, muted.Sprint("no history"))
			return nil
		}
		for _, e := range entries {
			fmt.Fprintf(out, "%s  %-8s %s  %s  %s\n",
				e.CreatedAt.Local().Format("2006-01-02 15:04"),
				e.Direction,
				highlight.Sprint(e.TransferID),
				strings.Join(e.FileNames, ", "),
				muted.Sprint(humanize.IBytes(uint64(e.TotalSize))))
			if e.Link != "" {
				fmt.Fprintf(out, "    %s\n", e.Link)
			}
			if e.Location != "" {
				fmt.Fprintf(out, "    %s\n", muted.Sprint(e.Location))
			}
		}
		return nil
	})
	return cmd
}
