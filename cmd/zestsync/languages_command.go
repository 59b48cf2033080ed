package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"zestsync/internal/language"
)

func newLanguagesCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:         "languages",
		Short:       "List supported subtitle languages",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			type view struct {
				Code       string `json:"code"`
				Name       string `json:"name"`
				NativeName string `json:"native_name"`
				Base       bool   `json:"base"`
				ModelSize  string `json:"model_size,omitempty"`
			}
			all := language.All()
			views := make([]view, 0, len(all))
			for _, entry := range all {
				v := view{
					Code:       entry.Code,
					Name:       entry.DisplayName,
					NativeName: language.NativeName(entry.Code),
					Base:       language.IsBase(entry.Code),
				}
				if !v.Base {
					v.ModelSize = language.SizeLabel(entry.Code)
				}
				views = append(views, v)
			}
			if asJSON {
				return writeJSON(cmd, views)
			}
			rows := make([][]string, 0, len(views))
			for _, v := range views {
				size := v.ModelSize
				if v.Base {
					size = "transcribed"
				}
				rows = append(rows, []string{v.Name, v.NativeName, v.Code, size})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Language", "Native", "Code", "Model"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON")
	return cmd
}
