package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	baseURL string
	timeout time.Duration
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "eventbank-cli",
		Short: "EventBank CLI tool",
		Long:  `A command line interface for interacting with the EventBank API.`,
	}

	rootCmd.PersistentFlags().StringVar(&baseURL, "url", "http://localhost:8080", "Base URL of the EventBank API")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")

	accountCmd := &cobra.Command{
		Use:   "account",
		Short: "Account operations",
	}

	accountCmd.AddCommand(
		createAccountCmd(),
		getAccountCmd(),
		creditAccountCmd(),
		debitAccountCmd(),
		listEventsCmd(),
		listOperationsCmd(),
	)
	rootCmd.AddCommand(accountCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func createAccountCmd() *cobra.Command {
	var currency, initialBalance string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Open a new account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return postJSON("/api/v1/accounts/", map[string]any{
				"currency":        currency,
				"initial_balance": initialBalance,
			})
		},
	}

	cmd.Flags().StringVar(&currency, "currency", "USD", "Account currency")
	cmd.Flags().StringVar(&initialBalance, "balance", "0", "Initial balance")

	return cmd
}

func getAccountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get [id]",
		Short: "Get an account summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return getJSON("/api/v1/accounts/" + args[0])
		},
	}
}

func creditAccountCmd() *cobra.Command {
	var currency, amount string

	cmd := &cobra.Command{
		Use:   "credit [id]",
		Short: "Deposit money into an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return putJSON("/api/v1/accounts/"+args[0]+"/credit", map[string]any{
				"currency": currency,
				"amount":   amount,
			})
		},
	}

	cmd.Flags().StringVar(&currency, "currency", "USD", "Amount currency")
	cmd.Flags().StringVar(&amount, "amount", "0", "Amount to credit")

	return cmd
}

func debitAccountCmd() *cobra.Command {
	var currency, amount string

	cmd := &cobra.Command{
		Use:   "debit [id]",
		Short: "Withdraw money from an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return putJSON("/api/v1/accounts/"+args[0]+"/debit", map[string]any{
				"currency": currency,
				"amount":   amount,
			})
		},
	}

	cmd.Flags().StringVar(&currency, "currency", "USD", "Amount currency")
	cmd.Flags().StringVar(&amount, "amount", "0", "Amount to debit")

	return cmd
}

func listEventsCmd() *cobra.Command {
	var from int64

	cmd := &cobra.Command{
		Use:   "events [id]",
		Short: "List an account's event history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return getJSON(fmt.Sprintf("/api/v1/accounts/%s/events?from=%d", args[0], from))
		},
	}

	cmd.Flags().Int64Var(&from, "from", 1, "First sequence number to read")

	return cmd
}

func listOperationsCmd() *cobra.Command {
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "operations [id]",
		Short: "List an account's operations history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return getJSON(fmt.Sprintf("/api/v1/accounts/%s/operations?limit=%d&offset=%d", args[0], limit, offset))
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum operations to return")
	cmd.Flags().IntVar(&offset, "offset", 0, "Operations to skip")

	return cmd
}

func getJSON(path string) error {
	client := &http.Client{Timeout: timeout}
	resp, err := client.Get(baseURL + path)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	return printResponse(resp)
}

func postJSON(path string, payload any) error {
	return sendJSON(http.MethodPost, path, payload)
}

func putJSON(path string, payload any) error {
	return sendJSON(http.MethodPut, path, payload)
}

func sendJSON(method, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequest(method, baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	return printResponse(resp)
}

func printResponse(resp *http.Response) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		fmt.Printf("Request failed (Status: %d)\n", resp.StatusCode)
	}

	var pretty any
	if err := json.Unmarshal(body, &pretty); err != nil {
		fmt.Println(string(body))
		return nil
	}
	printJSON(pretty)

	return nil
}

func printJSON(v any) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("failed to render response: %v\n", err)
		return
	}
	fmt.Println(string(out))
}
