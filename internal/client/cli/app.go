// Package cli implements votectl, the command-line front end of the
// VoterNet backend.
package cli

import (
	"bufio"
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/voternet/internal/client/client"
	"github.com/dmitrijs2005/voternet/internal/client/config"
	"github.com/dmitrijs2005/voternet/internal/netx"
)

// ClientFactory builds the backend client once configuration is known.
type ClientFactory func(cfg *config.Config) (client.Client, error)

func dialClient(cfg *config.Config) (client.Client, error) {
	return client.NewVoterNetClient(cfg.ServerEndpointAddr, cfg.RequestTimeout)
}

type App struct {
	newClient ClientFactory
	download  func(ctx context.Context, url string) ([]byte, error)
	reader    *bufio.Reader
	out       io.Writer

	configFile string
	addr       string

	config *config.Config
	client client.Client
	tokens *TokenStore
}

func NewApp() *App {
	return &App{
		newClient: dialClient,
		download:  netx.DownloadFromPresignedURL,
		reader:    bufio.NewReader(os.Stdin),
		out:       os.Stdout,
	}
}

// Command builds the votectl command tree.
func (a *App) Command() *cobra.Command {
	root := &cobra.Command{
		Use:           "votectl",
		Short:         "Command-line client for the VoterNet election backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&a.configFile, "config", "", "path to config file (JSON or YAML)")
	root.PersistentFlags().StringVarP(&a.addr, "addr", "a", "", "address and port of the backend server")

	root.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		return a.connect()
	}
	root.PersistentPostRunE = func(cmd *cobra.Command, _ []string) error {
		if a.client == nil {
			return nil
		}
		return a.client.Close()
	}

	root.AddCommand(a.pingCommand(), a.registerCommand(), a.loginCommand(), a.logoutCommand())
	for _, g := range commandGroups {
		cmd := a.groupCommand(g)
		if g.use == "results" {
			cmd.AddCommand(a.downloadCommand())
		}
		root.AddCommand(cmd)
	}
	return root
}

func (a *App) connect() error {
	cfg, err := config.LoadConfig(a.configFile)
	if err != nil {
		return err
	}
	if a.addr != "" {
		cfg.ServerEndpointAddr = a.addr
	}
	a.config = cfg
	a.tokens = NewTokenStore(cfg.TokenFile)

	c, err := a.newClient(cfg)
	if err != nil {
		return err
	}
	a.client = c

	token, err := a.tokens.Load()
	if err != nil {
		return err
	}
	if token != "" {
		c.SetAccessToken(token)
	}
	return nil
}

// Execute runs votectl with os.Args and returns the process exit code.
func Execute() int {
	a := NewApp()
	cmd := a.Command()
	if err := cmd.Execute(); err != nil {
		cmd.PrintErrln("Error:", err)
		return 1
	}
	return 0
}
