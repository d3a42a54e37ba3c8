package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/panbanda/pqinspect/internal/output"
	"github.com/panbanda/pqinspect/internal/progress"
	"github.com/panbanda/pqinspect/internal/scanner"
	"github.com/panbanda/pqinspect/internal/service/inspection"
)

func checkCmd() *cli.Command {
	return &cli.Command{
		Name:      "check",
		Usage:     "Parse and type every document under the given paths",
		ArgsUsage: "[path...]",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Documents checked in parallel (0 picks a default)",
			},
			&cli.Int64Flag{
				Name:  "max-size",
				Usage: "Skip documents larger than this many bytes (0 disables the limit)",
			},
			&cli.BoolFlag{
				Name:  "strict",
				Usage: "Exit non-zero when any document is partial or failed",
			},
			&cli.BoolFlag{
				Name:  "no-progress",
				Usage: "Hide the progress bar",
			},
		},
		Action: runCheckCmd,
	}
}

func runCheckCmd(c *cli.Context) error {
	paths := getPaths(c)
	st := appState(c)

	var progressOut io.Writer
	if !c.Bool("no-progress") {
		progressOut = appErrWriter(c)
	}

	spinner := progress.NewSpinner(progressOut, "Scanning documents...")
	files, err := scanner.NewScanner(st.cfg).ScanPaths(paths)
	if err != nil {
		spinner.FinishError(err)
		return fmt.Errorf("failed to scan: %w", err)
	}
	spinner.FinishSuccess()

	if maxSize := c.Int64("max-size"); maxSize > 0 {
		var skipped int
		files, skipped = scanner.FilterBySize(files, maxSize)
		if skipped > 0 {
			st.logger.Sugar().Infof("skipped %d documents larger than %d bytes", skipped, maxSize)
		}
	}

	formatter, err := newFormatter(c)
	if err != nil {
		return err
	}
	defer formatter.Close()

	if len(files) == 0 {
		formatter.Warning("No documents found")
		return nil
	}

	svc, err := newService(c)
	if err != nil {
		return err
	}

	tracker := progress.NewTracker(progressOut, "Checking documents...", len(files))
	report, err := svc.Check(c.Context, files, inspection.CheckOptions{
		Workers:    c.Int("workers"),
		OnProgress: tracker.Tick,
	})
	if err != nil {
		tracker.FinishError(err)
		return err
	}
	tracker.FinishSuccess()

	if err := formatter.Output(checkTable(report, formatter.Colored())); err != nil {
		return err
	}

	s := report.Summary
	if c.Bool("strict") && s.Partial+s.Failed > 0 {
		return cli.Exit(fmt.Sprintf("%d of %d documents did not check cleanly", s.Partial+s.Failed, s.Documents), 1)
	}
	return nil
}

func checkTable(report *inspection.CheckReport, colored bool) *output.Table {
	rows := make([][]string, 0, len(report.Documents))
	for _, d := range report.Documents {
		status := d.Status
		if colored {
			status = output.StatusColor(d.Status, d.Status)
		}
		detail := d.RootType
		if d.Error != "" {
			detail = d.Error
		}
		groups := make([]string, 0, len(d.RecursiveGroups))
		for _, g := range d.RecursiveGroups {
			groups = append(groups, strings.Join(g, ", "))
		}
		rows = append(rows, []string{
			d.Path,
			status,
			detail,
			strconv.Itoa(d.NoneCount),
			strings.Join(groups, "; "),
		})
	}

	s := report.Summary
	footer := []string{
		fmt.Sprintf("%d documents", s.Documents),
		fmt.Sprintf("%d ok, %d partial, %d failed", s.OK, s.Partial, s.Failed),
		"",
		strconv.Itoa(s.WithNone),
		strconv.Itoa(s.Recursive),
	}
	return output.NewTable(
		"Document Check",
		[]string{"Path", "Status", "Root Type", "None", "Recursive"},
		rows,
		footer,
		report,
	)
}
