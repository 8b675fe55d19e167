package cli

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/go-while/go-nzbidx/internal/database"
)

var importFlags struct {
	group     string
	file      string
	batchSize int
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Upsert an NDJSON archive into a group store",
	Long: `Import replays an NDJSON archive written during fetch (one overview row
per line) through the normal batch upsert, restoring a store or moving
it between machines. Re-importing the same file is idempotent.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := database.OpenGroupStore(cfg.DB.BasePath, importFlags.group)
		if err != nil {
			return err
		}
		defer store.Close()

		res, err := database.ImportNDJSON(store, importFlags.file, importFlags.batchSize)
		if err != nil {
			return err
		}
		log.Printf("[IMPORT] %s: %d inserted, %d ignored, %d malformed lines",
			importFlags.group, res.Inserted, res.Ignored, res.Malformed)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importFlags.group, "group", "", "newsgroup store to import into")
	importCmd.Flags().StringVar(&importFlags.file, "file", "", "NDJSON archive file to read")
	importCmd.Flags().IntVar(&importFlags.batchSize, "batch-size", 10000, "rows per upsert transaction")
	importCmd.MarkFlagRequired("group")
	importCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(importCmd)
}
