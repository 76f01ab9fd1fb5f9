package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/dmitrijs2005/vaultdrop/internal/common"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newFetchCmd(s *state) *cobra.Command {
	var outDir, password string

	cmd := &cobra.Command{
		Use:   "fetch LINK",
		Short: "Download and decrypt a share link",
		Long: `Downloads every file of a share link and decrypts it locally with the
key from the link. Quote the link: shells treat '#' specially.

When the transfer is password protected and no --password is given, the
password is asked for.`,
		Args: cobra.ExactArgs(1),
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "output directory")
	cmd.Flags().StringVarP(&password, "password", "p", "", "transfer password")

	cmd.RunE = s.withApp(func(cmd *cobra.Command, args []string, app *App) error {
		out := cmd.OutOrStdout()

		res, err := app.Transfers.Fetch(cmd.Context(), args[0], password, outDir)
		if errors.Is(err, common.ErrPasswordRequired) && password == "" && isTerminal(int(os.Stdin.Fd())) {
			pw, perr := GetPassword(s.reader(cmd), "Transfer password", out)
			if perr != nil {
				return perr
			}
			res, err = app.Transfers.Fetch(cmd.Context(), args[0], pw, outDir)
		}

		if res != nil {
			for _, f := range res.Files {
				note := ""
				if !f.Encrypted {
					note = " " + warning.Sprint("(not encrypted)")
				}
				fmt.Fprintf(out, "%s %s %s%s\n", success.Sprint("✓"), f.Path, muted.Sprint(humanize.IBytes(uint64(f.Size))), note)
			}
		}
		return err
	})
	return cmd
}
