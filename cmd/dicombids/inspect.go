package main

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/mrsinham/dicombids/internal/batch"
	"github.com/mrsinham/dicombids/internal/dicom"
	xlog "github.com/mrsinham/dicombids/internal/log"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63")).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Padding(0, 1)

	excludedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")).
			Padding(0, 1)
)

func inspectCmd() *cobra.Command {
	var (
		flags    projectFlags
		show     []string
		listTags bool
	)

	cmd := &cobra.Command{
		Use:   "inspect INPUT",
		Short: "Show how every series directory of a session would be mapped",
		Example: `  dicombids inspect /data/sub-x001/ses-mri-X1
  dicombids inspect --show SeriesDescription --show EchoTime ./session
  dicombids inspect --list-tags`,
		Args: func(cmd *cobra.Command, args []string) error {
			if listTags {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if listTags {
				fmt.Fprintln(cmd.OutOrStdout(), tagsTable().Render())
				return nil
			}

			tags := make([]dicom.TagInfo, 0, len(show))
			for _, name := range show {
				info, err := dicom.LookupTag(name)
				if err != nil {
					return err
				}
				tags = append(tags, info)
			}

			cfg, err := flags.load(cmd)
			if err != nil {
				return err
			}
			dirs, err := sessions(args, cfg)
			if err != nil {
				return err
			}

			logger := xlog.WithComponent("inspect")
			out := cmd.OutOrStdout()
			for _, dir := range dirs {
				plan, err := planSession(dir, cfg, logger)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("%s → %s", plan.Input, plan.Name())))
				fmt.Fprintln(out, inspectTable(plan, tags).Render())
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringArrayVar(&show, "show", nil, "add a column with this DICOM attribute (repeatable, e.g. EchoTime)")
	cmd.Flags().BoolVar(&listTags, "list-tags", false, "list the attributes --show accepts")
	return cmd
}

// inspectTable lists mapped series first, then excluded ones, in directory order.
func inspectTable(plan *batch.Plan, tags []dicom.TagInfo) *table.Table {
	headers := []string{"Series", "Files", "Source", "Datatype", "Filename / reason"}
	for _, t := range tags {
		headers = append(headers, t.Name)
	}

	var rows [][]string
	for _, e := range plan.Entries {
		row := []string{
			e.Series.Name,
			strconv.Itoa(len(e.Series.Files)),
			string(e.Classification.Source),
			string(e.Classification.Datatype),
			e.File.Filename,
		}
		for _, t := range tags {
			v, _ := e.Classification.Header.Lookup(t.Tag)
			row = append(row, v)
		}
		rows = append(rows, row)
	}
	mapped := len(rows)
	for _, x := range plan.Excluded {
		row := []string{x.Series, "", "", "", x.Reason}
		for range tags {
			row = append(row, "")
		}
		rows = append(rows, row)
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("244"))).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case row >= mapped:
				return excludedStyle
			default:
				return cellStyle
			}
		})
}

// tagsTable lists the attributes accepted by --show.
func tagsTable() *table.Table {
	var rows [][]string
	for _, a := range dicom.Attributes() {
		rows = append(rows, []string{a.Name, fmt.Sprintf("(%04X,%04X)", a.Tag.Group, a.Tag.Element), a.Group.String()})
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("244"))).
		Headers("Keyword", "Tag", "Group").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}
