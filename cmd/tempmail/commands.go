package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/nhle/tempmail/internal/app"
	"github.com/nhle/tempmail/internal/clipboard"
	"github.com/nhle/tempmail/internal/credential"
	"github.com/nhle/tempmail/internal/export"
	"github.com/nhle/tempmail/internal/mailbox"
	"github.com/nhle/tempmail/internal/model"
	"github.com/nhle/tempmail/internal/refresh"
	"github.com/nhle/tempmail/internal/store"
)

func runTUI(e *env) error {
	deps := app.Deps{
		Config:     e.cfg,
		ConfigPath: e.configPath,
		NewClient: func(s model.ServerConfig) app.MailClient {
			return e.newClient(s)
		},
		Client:    e.client,
		Pins:      credential.NewPins(),
		Clipboard: clipboard.New(),
		Exporter:  export.New(e.cfg.Export.Dir),
		Generator: mailbox.NewGenerator(),
		Logger:    e.logger,
	}

	if st, err := openStore(e.cfg); err != nil {
		e.logger.Warnw("history disabled", "error", err)
	} else {
		defer st.Close()
		deps.Store = st
	}

	p := tea.NewProgram(
		app.New(deps),
		tea.WithAltScreen(),
		tea.WithReportFocus(),
		tea.WithMouseCellMotion(),
	)
	if _, err := p.Run(); err != nil {
		return errors.Wrap(err, "running TUI")
	}
	return nil
}

func openStore(cfg *model.AppConfig) (*store.SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.History.Path), 0o755); err != nil {
		return nil, errors.Wrap(err, "creating history directory")
	}
	return store.NewSQLiteStore(cfg.History.Path)
}

func newWatchCmd(e *env) *cobra.Command {
	var (
		address string
		domain  string
		limit   int
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print mail for a mailbox as it arrives, without the TUI",
		RunE: func(cmd *cobra.Command, args []string) error {
			mb, err := resolveWatchMailbox(cmd.Context(), e, address, domain)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "watching %s (ctrl+c to stop)\n", mb)

			w := app.NewWatch(
				e.client,
				refresh.ConfigFrom(e.cfg.Refresh),
				mb,
				limit,
				cmd.OutOrStdout(),
				cmd.ErrOrStderr(),
				e.logger,
			)
			p := tea.NewProgram(w, tea.WithoutRenderer(), tea.WithInput(nil))
			if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrInterrupted) {
				return errors.Wrap(err, "watching")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&address, "address", "a", "", "Mailbox to watch (local@domain); random when empty")
	cmd.Flags().StringVarP(&domain, "domain", "d", "", "Domain for the random mailbox")
	cmd.Flags().IntVarP(&limit, "count", "n", 0, "Exit after this many messages (0 = run until interrupted)")
	return cmd
}

// resolveWatchMailbox validates address, or generates one at domain.
func resolveWatchMailbox(ctx context.Context, e *env, address, domain string) (model.Mailbox, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, e.cfg.Server.RequestTimeout())
	defer cancel()

	domains, err := e.client.AllowedDomains(ctx)
	if err != nil {
		return "", err
	}

	if address != "" {
		given := model.Mailbox(address)
		return mailbox.Custom(given.Local(), given.Domain(), domains)
	}
	if domain != "" {
		if err := mailbox.ValidateDomain(domain, domains); err != nil {
			return "", err
		}
		domains = []string{domain}
	}
	return mailbox.NewGenerator().Generate(domains)
}

func newDomainsCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "domains",
		Short: "List the domains the server accepts mail for",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), e.cfg.Server.RequestTimeout())
			defer cancel()

			domains, err := e.client.AllowedDomains(ctx)
			if err != nil {
				return err
			}
			if len(domains) == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), "the server offers no domains")
				return nil
			}
			for _, d := range domains {
				fmt.Fprintln(cmd.OutOrStdout(), d)
			}
			return nil
		},
	}
}

func newHistoryCmd(e *env) *cobra.Command {
	var (
		limit    int
		query    string
		clearAll bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show previously used mailboxes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(e.cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			ctx := context.Background()
			if clearAll {
				if err := st.ClearHistory(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "history cleared")
				return nil
			}

			filter := store.HistoryFilter{Limit: limit}
			if query != "" {
				filter.Query = &query
			}
			entries, err := st.ListMailboxes(ctx, filter)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ADDRESS\tORIGIN\tRECEIVED\tLAST USED")
			for _, en := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n",
					en.Address, en.Origin, en.ReceivedCount,
					en.LastUsedAt.Local().Format("2006-01-02 15:04"))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum entries to show")
	cmd.Flags().StringVarP(&query, "search", "s", "", "Only addresses containing this text")
	cmd.Flags().BoolVar(&clearAll, "clear", false, "Forget every address")
	return cmd
}
