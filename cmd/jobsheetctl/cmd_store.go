package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/repair-jobsheets/internal/common"
	"github.com/joseph-ayodele/repair-jobsheets/internal/entity"
	"github.com/joseph-ayodele/repair-jobsheets/internal/export"
	"github.com/joseph-ayodele/repair-jobsheets/internal/repository"
	"github.com/joseph-ayodele/repair-jobsheets/internal/sheets"
	"github.com/joseph-ayodele/repair-jobsheets/internal/utils"
)

var (
	exportFormat string
	exportOut    string
	exportStatus string
	exportFrom   string
	exportTo     string
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Check the job tab header row",
	RunE:  runSchema,
}

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Read jobs straight from the spreadsheet",
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every job",
	Args:  cobra.NoArgs,
	RunE:  runJobsList,
}

var jobsSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Find jobs by ID, customer name or mobile number",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobsSearch,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the job list to an xlsx or csv file",
	Long: `Write the job list to a file.

Dates are dd/mm/yyyy or yyyy-mm-dd and filter on the entry date. With only
--from the range runs to today.`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	jobsCmd.AddCommand(jobsListCmd, jobsSearchCmd)

	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "xlsx", "xlsx or csv")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file (default jobs.<format>)")
	exportCmd.Flags().StringVar(&exportStatus, "status", "", "Only jobs with this status")
	exportCmd.Flags().StringVar(&exportFrom, "from", "", "Earliest entry date")
	exportCmd.Flags().StringVar(&exportTo, "to", "", "Latest entry date")
}

// withStore opens the configured spreadsheet for one command.
func withStore(cmd *cobra.Command, fn func(ctx context.Context, store sheets.Client) error) error {
	cfg, err := common.LoadConfig()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	store, err := repository.Open(ctx, cfg.Sheets, logger)
	if err != nil {
		return err
	}
	defer repository.Close(store, logger)
	return fn(ctx, store)
}

func runSchema(cmd *cobra.Command, _ []string) error {
	return withStore(cmd, func(ctx context.Context, store sheets.Client) error {
		tab, err := store.Jobs(ctx)
		if err != nil {
			return err
		}
		got, err := tab.Headers(ctx)
		if err != nil {
			return err
		}

		table := tablewriter.NewWriter(cmd.OutOrStdout())
		table.SetHeader([]string{"#", "Expected", "Found", ""})
		want := repository.JobHeaders()
		for i, w := range want {
			found := ""
			if i < len(got) {
				found = got[i]
			}
			mark := "ok"
			if strings.TrimSpace(found) != w {
				mark = "MISMATCH"
			}
			table.Append([]string{fmt.Sprint(i + 1), w, found, mark})
		}
		table.Render()

		return repository.NewJobRepository(store, logger).VerifySchema(ctx)
	})
}

func runJobsList(cmd *cobra.Command, _ []string) error {
	return withStore(cmd, func(ctx context.Context, store sheets.Client) error {
		all, err := repository.NewJobRepository(store, logger).ListAll(ctx)
		if err != nil {
			return err
		}
		renderJobs(cmd.OutOrStdout(), all)
		return nil
	})
}

func runJobsSearch(cmd *cobra.Command, args []string) error {
	return withStore(cmd, func(ctx context.Context, store sheets.Client) error {
		found, err := repository.NewJobRepository(store, logger).Search(ctx, args[0])
		if err != nil {
			return err
		}
		renderJobs(cmd.OutOrStdout(), found)
		return nil
	})
}

func runExport(cmd *cobra.Command, _ []string) error {
	filter := export.Filter{Status: exportStatus}
	for _, d := range []struct {
		flag, value string
		dst         **time.Time
	}{
		{"--from", exportFrom, &filter.From},
		{"--to", exportTo, &filter.To},
	} {
		if d.value == "" {
			continue
		}
		t, ok := utils.ParseDate(d.value)
		if !ok {
			return fmt.Errorf("%s: unrecognised date %q", d.flag, d.value)
		}
		*d.dst = &t
	}

	out := exportOut
	if out == "" {
		out = "jobs." + exportFormat
	}

	return withStore(cmd, func(ctx context.Context, store sheets.Client) error {
		svc := export.NewService(repository.NewJobRepository(store, logger), logger)
		switch exportFormat {
		case "xlsx":
			data, err := svc.ExportJobsXLSX(ctx, filter)
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return err
			}
		case "csv":
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := svc.ExportJobsCSV(ctx, f, filter); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unknown format %q (want xlsx or csv)", exportFormat)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "wrote", out)
		return nil
	})
}

func renderJobs(w io.Writer, list []*entity.Job) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "Customer", "Mobile", "Model", "Issue", "Status", "Entered", "Completed"})
	table.SetAutoWrapText(false)
	for _, j := range list {
		table.Append([]string{j.ID, j.CustomerName, j.MobileNumber, j.MobileModel, j.Issue, j.Status, j.EntryDate, j.CompletionDate})
	}
	table.SetFooter([]string{"", "", "", "", "", "", "Total", fmt.Sprint(len(list))})
	table.Render()
}
