package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// addClientFlags registers the shared --api-url/--api-key flags once
// per command and returns pointers RunE can read at execution time.
func addClientFlags(cmd *cobra.Command) (*string, *string) {
	apiURL := cmd.Flags().String("api-url", "", "service base URL (default http://127.0.0.1:53211)")
	apiKey := cmd.Flags().String("api-key", os.Getenv("PROCESS_MANAGER_API_KEY"), "bearer key (default from PROCESS_MANAGER_API_KEY)")
	return apiURL, apiKey
}

func newListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List managed processes",
	}
	apiURL, apiKey := addClientFlags(cmd)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		data, err := newAPIClient(*apiURL, *apiKey).list()
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}
	return cmd
}

func newStartCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start <id>",
		Short: "Start a managed process by id",
		Args:  cobra.ExactArgs(1),
	}
	apiURL, apiKey := addClientFlags(cmd)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		data, err := newAPIClient(*apiURL, *apiKey).start(args[0])
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}
	return cmd
}

func newStopCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stop <id>",
		Short: "Stop a managed process by id",
		Args:  cobra.ExactArgs(1),
	}
	apiURL, apiKey := addClientFlags(cmd)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		data, err := newAPIClient(*apiURL, *apiKey).stop(args[0])
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}
	return cmd
}

func newLogsCommand() *cobra.Command {
	var lines int
	cmd := &cobra.Command{
		Use:   "logs <id>",
		Short: "Tail a managed process's captured log output",
		Args:  cobra.ExactArgs(1),
	}
	apiURL, apiKey := addClientFlags(cmd)
	cmd.Flags().IntVar(&lines, "lines", 100, "number of trailing log lines to fetch")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		data, err := newAPIClient(*apiURL, *apiKey).logs(args[0], lines)
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}
	return cmd
}
