package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ncopendata/opibase/internal/catalog"
	"github.com/ncopendata/opibase/internal/source"
)

var layoutsCmd = &cobra.Command{
	Use:   "layouts [file-id]",
	Short: "List the known source files, or show one file's parsed record layout",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			for _, f := range catalog.Files {
				fmt.Printf("%-10s %-40s -> %s\n", f.ID, f.Name, f.TableName())
			}
			return nil
		}

		id := args[0]
		meta, ok := catalog.ByID(id)
		if !ok {
			return fmt.Errorf("unknown file id %s", id)
		}
		dir := dataDir
		if dir == "" {
			dir = "data"
		}
		store := source.NewOSStore(dir)
		l, key, err := parseLayout(store, id)
		if err != nil {
			return err
		}

		fmt.Printf("%s (%s), record width %d, key field %s\n", id, meta.Name, l.RecordWidth, key)
		for _, f := range l.Fields {
			fmt.Printf("  %-20s %-8s cols %4d-%-4d  %s\n",
				f.Name, f.Kind, f.Offset+1, f.End(), f.Description)
		}
		return nil
	},
}

func init() {
	layoutsCmd.Flags().StringVarP(&dataDir, "data", "d", "", "Directory holding {ID}/{ID}.des files")
	rootCmd.AddCommand(layoutsCmd)
}
