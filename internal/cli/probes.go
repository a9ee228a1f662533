package cli

import (
	"encoding/json"
	"strconv"

	"github.com/buemura/baseera/internal/catalog"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var probesCmd = &cobra.Command{
	Use:   "probes",
	Short: "List the built-in probes in execution order",
	RunE:  runProbes,
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List the known vulnerability types",
	RunE:  runCatalog,
}

func init() {
	probesCmd.Flags().StringSliceVar(&disableFlag, "disable", nil, "probes to mark disabled")
	rootCmd.AddCommand(probesCmd)
	rootCmd.AddCommand(catalogCmd)
}

func runProbes(cmd *cobra.Command, args []string) error {
	reg, err := buildRegistry(appConfig)
	if err != nil {
		return err
	}
	descs := reg.Descriptors()

	if outputFlag == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(descs)
	}

	cat := catalog.Default()
	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader([]string{"#", "Type", "Probe", "Severity", "Enabled"})
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	for i, d := range descs {
		name := d.Name
		if e, err := cat.Lookup(d.TypeID); err == nil {
			name = e.DisplayName
		}
		enabled := color.GreenString("yes")
		if !d.Enabled {
			enabled = color.RedString("no")
		}
		table.Append([]string{strconv.Itoa(i + 1), strconv.Itoa(d.TypeID), d.Name + "  " + name, string(d.Severity), enabled})
	}
	table.Render()
	return nil
}

func runCatalog(cmd *cobra.Command, args []string) error {
	entries := catalog.Default().Entries()

	if outputFlag == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader([]string{"ID", "Name", "Severity", "Category", "CWE"})
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	for _, e := range entries {
		table.Append([]string{strconv.Itoa(e.ID), e.DisplayName, string(e.Severity), e.Category, e.CWE})
	}
	table.Render()
	return nil
}
