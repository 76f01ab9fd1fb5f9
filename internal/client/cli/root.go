package cli

import (
	"bufio"
	"context"

	"github.com/dmitrijs2005/vaultdrop/internal/buildinfo"
	"github.com/dmitrijs2005/vaultdrop/internal/client/config"
	"github.com/spf13/cobra"
)

// state is shared by the commands of one root.
type state struct {
	cfg     *config.Config
	factory Factory
	in      *bufio.Reader
}

// withApp adapts a command body that needs the services into a RunE. The
// App lives for one command.
func (s *state) withApp(fn func(cmd *cobra.Command, args []string, app *App) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		app, err := s.factory(cmd.Context(), s.cfg)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := app.Close(); err == nil {
				err = cerr
			}
		}()
		return fn(cmd, args, app)
	}
}

func (s *state) reader(cmd *cobra.Command) *bufio.Reader {
	if s.in == nil {
		s.in = bufio.NewReader(cmd.InOrStdin())
	}
	return s.in
}

// NewRootCmd builds the vaultdrop command tree. cfg already holds defaults,
// the JSON file and the short flags; the persistent flags below are bound to
// the same fields so they show up in help and parse the same way.
func NewRootCmd(cfg *config.Config, factory Factory) *cobra.Command {
	s := &state{cfg: cfg, factory: factory}
	var configPath string

	root := &cobra.Command{
		Use:           "vaultdrop",
		Short:         "Send files through end-to-end encrypted links",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "JSON config file")
	pf.StringVarP(&cfg.ServerEndpointAddr, "server", "a", cfg.ServerEndpointAddr, "gRPC server address")
	pf.StringVarP(&cfg.LocalDBPath, "db", "d", cfg.LocalDBPath, "local history database")
	pf.IntVarP(&cfg.UploadConcurrency, "jobs", "j", cfg.UploadConcurrency, "files encrypted and uploaded in parallel")
	pf.DurationVarP(&cfg.TransferTimeout, "timeout", "t", cfg.TransferTimeout, "timeout of one object upload or download")

	root.AddCommand(
		newRegisterCmd(s),
		newLoginCmd(s),
		newLogoutCmd(s),
		newWhoamiCmd(s),
		newSendCmd(s),
		newFetchCmd(s),
		newListCmd(s),
		newDeleteCmd(s),
		newHistoryCmd(s),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			buildinfo.PrintBuildData(cmd.OutOrStdout())
		},
	}
}

// Execute runs the CLI and returns the process exit code.
func Execute(ctx context.Context, cfg *config.Config) int {
	root := NewRootCmd(cfg, NewApp)
	if err := root.ExecuteContext(ctx); err != nil {
		PrintError(root.ErrOrStderr(), err)
		return 1
	}
	return 0
}
