package main

import (
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"go_inpaint/inpaint"
	"go_inpaint/sampler"
)

func newRootCmd(a *app) *cobra.Command {
	cobra.EnableCommandSorting = false

	root := &cobra.Command{
		Use:           "go_inpaint",
		Short:         "Mask-guided image inpainting",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	root.AddCommand(
		newRunCmd(a),
		newModelsCmd(),
		newSamplersCmd(),
		newHistoryCmd(a),
	)
	return root
}

func newModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List registered inpainting models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var data [][]string
			for _, name := range inpaint.Names() {
				spec, err := inpaint.Lookup(name)
				if err != nil {
					return err
				}
				data = append(data, []string{spec.Name, spec.ModelID, strconv.Itoa(spec.PadMod), strconv.Itoa(spec.MinSize)})
			}
			renderTable(cmd.OutOrStdout(), []string{"NAME", "MODEL ID", "PAD MOD", "MIN SIZE"}, data)
			return nil
		},
	}
}

func newSamplersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "samplers",
		Short: "List supported samplers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var data [][]string
			for _, s := range sampler.Names() {
				sched, err := sampler.Get(string(s), nil)
				if err != nil {
					return err
				}
				data = append(data, []string{string(s), sched.Class, sampler.WebUIName(s)})
			}
			renderTable(cmd.OutOrStdout(), []string{"NAME", "SCHEDULER", "WEBUI NAME"}, data)
			return nil
		},
	}
}

func renderTable(w io.Writer, header []string, data [][]string) {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(data)
	table.Render()
}
