package cli

import (
	"fmt"

	"github.com/dmitrijs2005/vaultdrop/internal/client/services"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newSendCmd(s *state) *cobra.Command {
	var (
		opts        services.SendOptions
		askPassword bool
	)

	cmd := &cobra.Command{
		Use:   "send FILE...",
		Short: "Encrypt files, upload them and print the share link",
		Long: `Encrypts every file with a fresh key, uploads the ciphertext and prints
a share link. The key travels only in the link's #fragment.

Examples:
  vaultdrop send report.pdf
  vaultdrop send --expires 7 --max-downloads 3 a.zip b.zip
  vaultdrop send --ask-password secrets.tar`,
		Args: cobra.MinimumNArgs(1),
	}
	f := cmd.Flags()
	f.IntVarP(&opts.ExpiresInDays, "expires", "e", 0, "days until the transfer expires (server default when 0)")
	f.StringVarP(&opts.Password, "password", "p", "", "protect the transfer with a password")
	f.BoolVarP(&askPassword, "ask-password", "P", false, "prompt for the transfer password")
	f.Int64VarP(&opts.MaxDownloads, "max-downloads", "m", 0, "download limit, 0 for none")

	cmd.RunE = s.withApp(func(cmd *cobra.Command, args []string, app *App) error {
		out := cmd.OutOrStdout()
		if askPassword {
			pw, err := GetPassword(s.reader(cmd), "Transfer password", out)
			if err != nil {
				return err
			}
			opts.Password = pw
		}

		res, err := app.Transfers.Send(cmd.Context(), args, opts)
		if res != nil && err != nil {
			// registered, only the local history failed
			fmt.Fprintf(cmd.ErrOrStderr(), "%s %v\n", warning.Sprint("warning:"), err)
			err = nil
		}
		if err != nil {
			return err
		}

		var total int64
		for _, f := range res.Files {
			total += f.Size
		}
		fmt.Fprintf(out, "%s sent %d file(s), %s\n", success.Sprint("✓"), len(res.Files), humanize.IBytes(uint64(total)))
		fmt.Fprintf(out, "%s\n", highlight.Sprint(res.Link))
		fmt.Fprintf(out, "%s\n", muted.Sprintf("expires %s", res.ExpiresAt.Local().Format("2006-01-02 15:04")))
		return nil
	})
	return cmd
}
