// atlasctl is a command line client for the Atlas task board.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Mahad-Saffi/Atlas-AI-Scrum-Master-sub000/internal/atlas"
	"github.com/Mahad-Saffi/Atlas-AI-Scrum-Master-sub000/internal/config"
	"github.com/Mahad-Saffi/Atlas-AI-Scrum-Master-sub000/internal/credential"
)

var Version = "dev"

// app carries what every command needs. Tests replace load.
type app struct {
	out    io.Writer
	errOut io.Writer
	load   func() (*config.Config, error)
}

func main() {
	_ = godotenv.Load()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	a := &app{out: os.Stdout, errOut: os.Stderr, load: config.Load}
	if err := a.rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (a *app) rootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "atlasctl",
		Short:         "atlasctl - Atlas task board from the terminal",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(a.out)
	rootCmd.SetErr(a.errOut)

	// Add subcommands
	rootCmd.AddCommand(a.loginCmd())
	rootCmd.AddCommand(a.logoutCmd())
	rootCmd.AddCommand(a.projectsCmd())
	rootCmd.AddCommand(a.boardCmd())
	rootCmd.AddCommand(a.tasksCmd())
	rootCmd.AddCommand(a.completeCmd())
	rootCmd.AddCommand(a.notificationsCmd())

	return rootCmd
}

func (a *app) credentials() (*config.Config, *credential.Store, error) {
	cfg, err := a.load()
	if err != nil {
		return nil, nil, err
	}
	return cfg, credential.NewStore(cfg.Atlas.TokenFile), nil
}

func (a *app) client() (*atlas.Client, error) {
	cfg, creds, err := a.credentials()
	if err != nil {
		return nil, err
	}
	var provider credential.Provider = creds
	if cfg.Atlas.Token != "" {
		provider = credential.Static(cfg.Atlas.Token)
	}
	return atlas.NewClient(cfg.Atlas.APIURL, provider, atlas.WithTimeout(cfg.Atlas.RequestTimeout))
}
