package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/andreiashu/markerbed"
)

var upsertCmd = &cobra.Command{
	Use:   "upsert <json>",
	Short: "Add or update one record from a JSON object ('-' reads stdin)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := readArg(cmd.InOrStdin(), args[0])
		if err != nil {
			return err
		}
		var payload map[string]any
		if err := decodeJSON(raw, &payload); err != nil {
			return err
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		res, err := store.Upsert(cmd.Context(), payload)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), res)
	},
}

var importReplace bool

var importCmd = &cobra.Command{
	Use:   "import <file.json>",
	Short: "Upsert a JSON array of records, or replace the dataset with it",
	Long: `Reads a JSON array of records, or an object holding the array under
"records" or "data". Every record is validated before anything is written.
With --replace the dataset is discarded and rewritten from the file.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := readArg(cmd.InOrStdin(), "@"+args[0])
		if err != nil {
			return err
		}
		payloads, err := decodeRecordList(raw)
		if err != nil {
			return err
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		var res any
		if importReplace {
			res, err = store.Replace(cmd.Context(), payloads)
		} else {
			res, err = store.UpsertBatch(cmd.Context(), payloads)
		}
		if err != nil {
			var be *markerbed.BatchError
			if errors.As(err, &be) {
				_ = printJSON(cmd.ErrOrStderr(), be)
			}
			return err
		}
		return printJSON(cmd.OutOrStdout(), res)
	},
}

var clearYes bool

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Reset the dataset to its header line (requires --yes)",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		res, err := store.Clear(cmd.Context(), clearYes)
		if errors.Is(err, markerbed.ErrConfirmationRequired) {
			return fmt.Errorf("%w: pass --yes to clear %s", err, store.Path())
		}
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), res)
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the dataset file to stdout",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		data, err := store.Export()
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check the dataset for duplicate keys, bad coordinates and codec drift",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := markerbed.Verify(cfg.Dataset.Path)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "dataset:     %s\n", report.Path)
		if !report.Exists {
			fmt.Fprintln(out, "status:      not created yet")
			return nil
		}
		fmt.Fprintf(out, "records:     %d\n", report.Records)
		fmt.Fprintf(out, "empty keys:  %d\n", report.EmptyKeys)
		fmt.Fprintf(out, "duplicates:  %v\n", report.DuplicateKeys)
		fmt.Fprintf(out, "out of range: %v\n", report.OutOfBounds)
		fmt.Fprintf(out, "canonical:   %t\n", report.Canonical)
		fmt.Fprintf(out, "round trip:  %t\n", report.RoundTripStable)
		if !report.OK() {
			return fmt.Errorf("dataset %s failed verification", report.Path)
		}
		return nil
	},
}

var backupsCmd = &cobra.Command{
	Use:   "backups",
	Short: "List backup snapshots, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		list, err := store.Backups().List()
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "TAKEN\tOPERATION\tSIZE\tPATH")
		for _, b := range list {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", b.Taken.Format("2006-01-02 15:04:05.000"), b.Operation, b.Size, b.Path)
		}
		return tw.Flush()
	},
}

func init() {
	importCmd.Flags().BoolVar(&importReplace, "replace", false, "Replace the whole dataset instead of merging")
	clearCmd.Flags().BoolVar(&clearYes, "yes", false, "Confirm clearing every record")
}

// readArg returns arg itself, the contents of the file named by "@path", or
// stdin for "-".
func readArg(stdin io.Reader, arg string) ([]byte, error) {
	switch {
	case arg == "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	case len(arg) > 1 && arg[0] == '@':
		data, err := os.ReadFile(arg[1:])
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", arg[1:], err)
		}
		return data, nil
	default:
		return []byte(arg), nil
	}
}

func decodeJSON(raw []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

// decodeRecordList accepts a bare array or {"records": [...]} / {"data": [...]}.
func decodeRecordList(raw []byte) ([]map[string]any, error) {
	var list []map[string]any
	if err := decodeJSON(raw, &list); err == nil {
		return list, nil
	}
	var wrapped struct {
		Records []map[string]any `json:"records"`
		Data    []map[string]any `json:"data"`
	}
	if err := decodeJSON(raw, &wrapped); err != nil {
		return nil, err
	}
	if wrapped.Records != nil {
		return wrapped.Records, nil
	}
	return wrapped.Data, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
