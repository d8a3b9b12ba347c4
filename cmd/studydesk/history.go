package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pavelanni/studydesk/internal/store"
)

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [ID]",
		Short: "List saved artifacts, or print one as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runHistory,
	}
	f := cmd.Flags()
	f.Int("limit", 20, "Maximum number of events to list")
	commonFlags(f)
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the artifact history as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	commonFlags(f)
	return cmd
}

func openStore(cmd *cobra.Command) (*viper.Viper, *store.Store, string, error) {
	v, err := setup(cmd)
	if err != nil {
		return nil, nil, "", err
	}
	db, clientID, err := openHistory(v)
	if err != nil {
		return nil, nil, "", err
	}
	if db == nil {
		return nil, nil, "", errors.New("history is disabled")
	}
	return v, db, clientID, nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	v, db, clientID, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer db.Close()
	out := cmd.OutOrStdout()

	if len(args) == 1 {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid event ID %q", args[0])
		}
		ev, err := db.GetEvent(id, clientID)
		if err != nil {
			return fmt.Errorf("get event: %w", err)
		}
		if ev == nil {
			return fmt.Errorf("event %d not found", id)
		}
		data, err := json.MarshalIndent(ev, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal JSON: %w", err)
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	}

	events, err := db.ListEvents(clientID, v.GetInt("limit"))
	if err != nil {
		return fmt.Errorf("list events: %w", err)
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tWHEN\tKIND\tTITLE\tFILE")
	for _, ev := range events {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			ev.ID, ev.CreatedAt.Local().Format("2006-01-02 15:04"), ev.Kind, ev.Title, ev.FilePath)
	}
	return tw.Flush()
}

func runExport(cmd *cobra.Command, _ []string) error {
	v, db, clientID, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	export, err := db.ExportEvents(clientID)
	if err != nil {
		return fmt.Errorf("export events: %w", err)
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = cmd.OutOrStdout()
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	// Ensure trailing newline.
	_, _ = fmt.Fprintln(w)
	return nil
}
