package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/ternarybob/speckle-accounts/internal/models"
)

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "List and manage stored accounts",
}

var accountsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every account known on this machine",
	Args:  cobra.NoArgs,
	RunE:  runAccountsList,
}

var accountsDefaultCmd = &cobra.Command{
	Use:   "default [account id]",
	Short: "Show the default account, or make the given account the default",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAccountsDefault,
}

var accountsRemoveCmd = &cobra.Command{
	Use:   "remove [account id]",
	Short: "Remove a stored account",
	Args:  cobra.ExactArgs(1),
	RunE:  runAccountsRemove,
}

var accountsRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Refresh user and server info for every stored account",
	Args:  cobra.NoArgs,
	RunE:  runAccountsRefresh,
}

var accountsServer string

func init() {
	accountsListCmd.Flags().StringVar(&accountsServer, "server", "", "Only list accounts on this server")

	accountsCmd.AddCommand(accountsListCmd)
	accountsCmd.AddCommand(accountsDefaultCmd)
	accountsCmd.AddCommand(accountsRemoveCmd)
	accountsCmd.AddCommand(accountsRefreshCmd)
}

func runAccountsList(cmd *cobra.Command, args []string) error {
	application, err := newApp()
	if err != nil {
		return err
	}
	defer application.Close()

	var accounts []*models.Account
	if accountsServer != "" {
		accounts, err = application.AccountService.GetAccountsForServer(cmd.Context(), accountsServer)
	} else {
		accounts, err = application.AccountService.GetAccounts(cmd.Context())
	}
	if err != nil {
		return err
	}

	if len(accounts) == 0 {
		fmt.Println("No accounts found. Run `speckle-accounts login` to add one.")
		return nil
	}

	printAccounts(accounts)
	return nil
}

func runAccountsDefault(cmd *cobra.Command, args []string) error {
	application, err := newApp()
	if err != nil {
		return err
	}
	defer application.Close()

	if len(args) == 1 {
		if err := application.AccountService.ChangeDefaultAccount(cmd.Context(), args[0]); err != nil {
			return err
		}
		logger.Info().Str("account_id", args[0]).Msg("Default account changed")
	}

	acc, err := application.AccountService.GetDefaultAccount(cmd.Context())
	if err != nil {
		return err
	}
	if acc == nil {
		fmt.Println("No default account.")
		return nil
	}

	printAccounts([]*models.Account{acc})
	return nil
}

func runAccountsRemove(cmd *cobra.Command, args []string) error {
	application, err := newApp()
	if err != nil {
		return err
	}
	defer application.Close()

	if err := application.AccountService.RemoveAccount(cmd.Context(), args[0]); err != nil {
		return err
	}

	logger.Info().Str("account_id", args[0]).Msg("Account removed")
	return nil
}

func runAccountsRefresh(cmd *cobra.Command, args []string) error {
	application, err := newApp()
	if err != nil {
		return err
	}
	defer application.Close()

	application.SchedulerService.RunNow(cmd.Context())

	_, online, total := application.SchedulerService.LastRun()
	fmt.Printf("Refreshed %d accounts, %d online\n", total, online)
	return nil
}

func printAccounts(accounts []*models.Account) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDEFAULT\tONLINE\tEMAIL\tSERVER")
	for _, acc := range accounts {
		email, server := "", ""
		if acc.UserInfo != nil {
			email = acc.UserInfo.Email
		}
		if acc.ServerInfo != nil {
			server = acc.ServerInfo.URL
		}
		fmt.Fprintf(w, "%s\t%t\t%t\t%s\t%s\n", acc.MustID(), acc.IsDefault, acc.IsOnline, email, server)
	}
	w.Flush()
}
