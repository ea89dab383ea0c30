package main

import (
	"errors"
	"fmt"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"
	"github.com/ternarybob/speckle-accounts/internal/app"
	"github.com/ternarybob/speckle-accounts/internal/services/accounts"
)

var loginCmd = &cobra.Command{
	Use:   "login [server url]",
	Short: "Add an account by logging in through the browser",
	Long:  `Opens the server's login page in the browser and waits for the redirect back. Without a server url the default server is used.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLogin,
}

func runLogin(cmd *cobra.Command, args []string) error {
	application, err := newApp(app.WithAccountOptions(accounts.WithBrowserOpener(openOrPrint)))
	if err != nil {
		return err
	}
	defer application.Close()

	server := ""
	if len(args) == 1 {
		server = args[0]
	}

	acc, err := application.AccountService.AddAccount(cmd.Context(), server)
	if errors.Is(err, accounts.ErrLoginTimeout) {
		fmt.Println("Login timed out before the browser returned. No account was added.")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Printf("Logged in as %s on %s\n", acc.UserInfo.Email, acc.ServerInfo.URL)
	return nil
}

// openOrPrint opens the login page, printing its url when no browser is available
func openOrPrint(url string) error {
	if err := browser.OpenURL(url); err != nil {
		fmt.Printf("Open this url to log in: %s\n", url)
		return err
	}
	return nil
}
