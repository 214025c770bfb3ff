package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

// NewBatchCmd создаёт группу команд для управления batch'ами.
func NewBatchCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Manage batches",
	}

	cmd.AddCommand(
		newBatchSubmitCmd(clientFn, outputFn),
		newBatchListCmd(clientFn, outputFn),
		newBatchShowCmd(clientFn, outputFn),
		newBatchTasksCmd(clientFn, outputFn),
		newBatchCancelCmd(clientFn, outputFn),
		newBatchDismissCmd(clientFn, outputFn),
		newBatchWatchCmd(clientFn, outputFn),
	)

	return cmd
}

func newBatchSubmitCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var name string
	var file string
	var maxConcurrency int
	var maxAttempts int
	var minStartIntervalMS int64
	var backoffBaseMS int64
	var backoffCapMS int64

	cmd := &cobra.Command{
		Use:   "submit --file TASKS_FILE",
		Short: "Submit a new batch",
		Long: `Submit a new batch of tasks.

The tasks file is a JSON array:

  [
    {"name": "upload-1", "type": "http", "payload": {"url": "http://...", "content": "..."}},
    {"name": "pause",    "type": "delay", "payload": {"duration_ms": 500}}
  ]`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read tasks file: %w", err)
			}

			var tasks []SubmitTaskEntry
			if err := json.Unmarshal(data, &tasks); err != nil {
				return fmt.Errorf("parse tasks file: %w", err)
			}

			req := SubmitBatchRequest{Name: name, Tasks: tasks}

			if cmd.Flags().Changed("max-concurrency") ||
				cmd.Flags().Changed("max-attempts") ||
				cmd.Flags().Changed("min-start-interval-ms") ||
				cmd.Flags().Changed("backoff-base-ms") ||
				cmd.Flags().Changed("backoff-cap-ms") {
				req.Config = &SchedulerConfig{
					MaxConcurrency:     maxConcurrency,
					MaxAttempts:        maxAttempts,
					MinStartIntervalMS: minStartIntervalMS,
					BackoffBaseMS:      backoffBaseMS,
					BackoffCapMS:       backoffCapMS,
				}
			}

			batch, err := client.SubmitBatch(req)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Batch submitted: %s", batch.ID))
			out.Print(
				[]string{"ID", "NAME", "TASKS", "STATUS", "CREATED"},
				[][]string{batchRow(*batch)},
				batch,
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Batch name")
	cmd.Flags().StringVar(&file, "file", "", "Path to JSON file with tasks (required)")
	cmd.Flags().IntVar(&maxConcurrency, "max-concurrency", 0, "Max concurrently running tasks")
	cmd.Flags().IntVar(&maxAttempts, "max-attempts", 0, "Max attempts per task")
	cmd.Flags().Int64Var(&minStartIntervalMS, "min-start-interval-ms", 0, "Min interval between task starts, ms")
	cmd.Flags().Int64Var(&backoffBaseMS, "backoff-base-ms", 0, "Retry backoff base, ms")
	cmd.Flags().Int64Var(&backoffCapMS, "backoff-cap-ms", 0, "Retry backoff cap, ms")
	cmd.MarkFlagRequired("file")

	return cmd
}

func newBatchListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List batches",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			batches, err := client.ListBatches()
			if err != nil {
				return err
			}

			headers := []string{"ID", "NAME", "TASKS", "STATUS", "CREATED"}
			rows := make([][]string, len(batches))
			for i, b := range batches {
				rows[i] = batchRow(b)
			}

			out.Print(headers, rows, batches)
			return nil
		},
	}
}

func newBatchShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show batch details with summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			batch, err := client.GetBatch(args[0])
			if err != nil {
				return err
			}

			out.Print(
				[]string{"ID", "NAME", "TASKS", "STATUS", "COMPLETED", "FAILED", "CANCELLED"},
				[][]string{{
					batch.ID,
					batch.Name,
					strconv.Itoa(batch.TaskCount),
					batch.Status,
					strconv.Itoa(batch.Summary.Completed),
					strconv.Itoa(batch.Summary.Failed),
					strconv.Itoa(batch.Summary.Cancelled),
				}},
				batch,
			)
			return nil
		},
	}
}

func newBatchTasksCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "tasks BATCH_ID",
		Short: "List tasks in a batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			tasks, err := client.ListTasks(args[0])
			if err != nil {
				return err
			}

			out.Print(taskHeaders(), taskRows(tasks), tasks)
			return nil
		},
	}
}

func newBatchCancelCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel ID",
		Short: "Cancel a batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if err := client.CancelBatch(args[0]); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Batch cancelling: %s", args[0]))
			return nil
		},
	}
}

func newBatchDismissCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "dismiss ID",
		Short: "Remove a settled batch from the registry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if err := client.DismissBatch(args[0]); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Batch dismissed: %s", args[0]))
			return nil
		},
	}
}

func newBatchWatchCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch BATCH_ID",
		Short: "Watch batch progress until it settles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			for {
				batch, err := client.GetBatch(args[0])
				if err != nil {
					return err
				}

				tasks, err := client.ListTasks(args[0])
				if err != nil {
					return err
				}

				out.Print(taskHeaders(), taskRows(tasks), tasks)

				if batch.Status == "SETTLED" {
					out.Success(fmt.Sprintf(
						"Batch settled: %d completed, %d failed, %d cancelled",
						batch.Summary.Completed,
						batch.Summary.Failed,
						batch.Summary.Cancelled,
					))
					return nil
				}

				time.Sleep(interval)
			}
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", time.Second, "Polling interval")

	return cmd
}

// --- Helpers ---

func batchRow(b BatchResponse) []string {
	return []string{b.ID, b.Name, strconv.Itoa(b.TaskCount), b.Status, b.CreatedAt}
}

func taskHeaders() []string {
	return []string{"TASK_ID", "NAME", "TYPE", "STATUS", "PROGRESS", "ATTEMPT", "ERROR"}
}

func taskRows(tasks []TaskSnapshot) [][]string {
	rows := make([][]string, len(tasks))
	for i, t := range tasks {
		rows[i] = []string{
			t.TaskID,
			t.Name,
			t.Type,
			t.Status,
			strconv.Itoa(t.Progress) + "%",
			strconv.Itoa(t.Attempt),
			t.LastError,
		}
	}
	return rows
}
