package cli

import (
	"strconv"

	"github.com/spf13/cobra"
)

// NewHistoryCmd создаёт группу команд для просмотра архива.
func NewHistoryCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse settled batch history",
	}

	cmd.AddCommand(
		newHistoryListCmd(clientFn, outputFn),
		newHistoryShowCmd(clientFn, outputFn),
	)

	return cmd
}

func newHistoryListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recently settled batches",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			records, err := client.ListHistory(limit)
			if err != nil {
				return err
			}

			headers := []string{"ID", "NAME", "TASKS", "COMPLETED", "FAILED", "CANCELLED", "SETTLED"}
			rows := make([][]string, len(records))
			for i, r := range records {
				rows[i] = []string{
					r.ID,
					r.Name,
					strconv.Itoa(r.TaskCount),
					strconv.Itoa(r.Summary.Completed),
					strconv.Itoa(r.Summary.Failed),
					strconv.Itoa(r.Summary.Cancelled),
					r.SettledAt,
				}
			}

			out.Print(headers, rows, records)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results")

	return cmd
}

func newHistoryShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show an archived batch with its tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			record, err := client.GetHistory(args[0])
			if err != nil {
				return err
			}

			out.Print(taskHeaders(), taskRows(record.Tasks), record)
			return nil
		},
	}
}
