package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/ternarybob/speckle-accounts/internal/services/streams"
)

var streamCmd = &cobra.Command{
	Use:   "stream",
	Short: "Parse and resolve stream urls",
}

var streamParseCmd = &cobra.Command{
	Use:   "parse [url or stream id]",
	Short: "Show the parts of a stream url without contacting a server",
	Args:  cobra.ExactArgs(1),
	RunE:  runStreamParse,
}

var streamResolveCmd = &cobra.Command{
	Use:   "resolve [url or stream id]",
	Short: "Find an account that can access a stream",
	Args:  cobra.ExactArgs(1),
	RunE:  runStreamResolve,
}

func init() {
	streamCmd.AddCommand(streamParseCmd)
	streamCmd.AddCommand(streamResolveCmd)
}

func runStreamParse(cmd *cobra.Command, args []string) error {
	application, err := newApp()
	if err != nil {
		return err
	}
	defer application.Close()

	w, err := application.StreamResolver.New(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	printWrapper(w)
	return nil
}

func runStreamResolve(cmd *cobra.Command, args []string) error {
	application, err := newApp()
	if err != nil {
		return err
	}
	defer application.Close()

	w, err := application.StreamResolver.New(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	acc, err := w.GetAccount(cmd.Context())
	if err != nil {
		return err
	}

	printWrapper(w)
	fmt.Printf("account:  %s (%s)\n", acc.MustID(), acc.UserInfo.Email)
	return nil
}

func printWrapper(w *streams.StreamWrapper) {
	fmt.Printf("type:     %s\n", w.Type())
	fmt.Printf("server:   %s\n", w.ServerURL)
	fmt.Printf("stream:   %s\n", w.StreamID)
	if w.UserID != "" {
		fmt.Printf("user:     %s\n", w.UserID)
	}
	if w.BranchName != "" {
		fmt.Printf("branch:   %s\n", w.BranchName)
	}
	if w.CommitID != "" {
		fmt.Printf("commit:   %s\n", w.CommitID)
	}
	if w.ObjectID != "" {
		fmt.Printf("object:   %s\n", w.ObjectID)
	}
	fmt.Printf("url:      %s\n", w)
}
