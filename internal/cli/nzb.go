package cli

import (
	"fmt"
	"log"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/go-while/go-nzbidx/internal/config"
	"github.com/go-while/go-nzbidx/internal/database"
	"github.com/go-while/go-nzbidx/internal/nzb"
)

var nzbFlags struct {
	group             string
	subjectLike       string
	notSubject        string
	fromLike          string
	notFrom           string
	dateFrom          string
	dateTo            string
	requireComplete   bool
	groupByCollection bool
	output            string
}

var nzbCmd = &cobra.Command{
	Use:   "nzb",
	Short: "Assemble NZB documents from a group store",
	Long: `Nzb reads stored overview rows matching the configured filters, groups
them into files and collections by subject analysis and writes NZB 1.1
XML: one document per group, or one per collection with
--group-by-collection.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		applyNzbFlags(cmd)
		groups, err := targetGroups(nzbFlags.group)
		if err != nil {
			return err
		}
		for _, group := range groups {
			if err := cmd.Context().Err(); err != nil {
				return err
			}
			if err := assembleGroup(group, len(groups) > 1); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	nzbCmd.Flags().StringVar(&nzbFlags.group, "group", "", "newsgroup store to read (default: groups.names from config)")
	nzbCmd.Flags().StringVar(&nzbFlags.subjectLike, "subject-like", "", "substring the subject must contain")
	nzbCmd.Flags().StringVar(&nzbFlags.notSubject, "not-subject", "", "|-separated substrings the subject must not contain")
	nzbCmd.Flags().StringVar(&nzbFlags.fromLike, "from-like", "", "substring the poster must contain")
	nzbCmd.Flags().StringVar(&nzbFlags.notFrom, "not-from", "", "|-separated substrings the poster must not contain")
	nzbCmd.Flags().StringVar(&nzbFlags.dateFrom, "date-from", "", "inclusive lower date bound (2006-01-02 or RFC 3339)")
	nzbCmd.Flags().StringVar(&nzbFlags.dateTo, "date-to", "", "inclusive upper date bound")
	nzbCmd.Flags().BoolVar(&nzbFlags.requireComplete, "require-complete", false, "drop files with missing parts")
	nzbCmd.Flags().BoolVar(&nzbFlags.groupByCollection, "group-by-collection", false, "write one NZB per collection instead of one per group")
	nzbCmd.Flags().StringVar(&nzbFlags.output, "output", "", "output file (single mode) or directory (collection mode)")
	rootCmd.AddCommand(nzbCmd)
}

func applyNzbFlags(cmd *cobra.Command) {
	if cmd.Flags().Changed("subject-like") {
		cfg.Filters.SubjectLike = nzbFlags.subjectLike
	}
	if cmd.Flags().Changed("not-subject") {
		cfg.Filters.NotSubject = nzbFlags.notSubject
	}
	if cmd.Flags().Changed("from-like") {
		cfg.Filters.FromLike = nzbFlags.fromLike
	}
	if cmd.Flags().Changed("not-from") {
		cfg.Filters.NotFrom = nzbFlags.notFrom
	}
	if cmd.Flags().Changed("date-from") {
		cfg.Filters.DateFrom = nzbFlags.dateFrom
	}
	if cmd.Flags().Changed("date-to") {
		cfg.Filters.DateTo = nzbFlags.dateTo
	}
	if cmd.Flags().Changed("require-complete") {
		cfg.NZB.RequireCompleteSets = nzbFlags.requireComplete
	}
	if cmd.Flags().Changed("group-by-collection") {
		cfg.NZB.GroupByCollection = nzbFlags.groupByCollection
	}
	if cmd.Flags().Changed("output") {
		cfg.NZB.OutputPath = nzbFlags.output
	}
}

// buildQueryFilter turns the filter config into a store query. Bad date
// bounds are config errors.
func buildQueryFilter(group string) (*database.QueryFilter, error) {
	dateFrom, err := cfg.Filters.DateFromUnix()
	if err != nil {
		return nil, &config.ConfigError{Key: "filters.date_from", Reason: err.Error()}
	}
	dateTo, err := cfg.Filters.DateToUnix()
	if err != nil {
		return nil, &config.ConfigError{Key: "filters.date_to", Reason: err.Error()}
	}
	return &database.QueryFilter{
		GroupName:    group,
		SubjectLike:  cfg.Filters.SubjectLike,
		NotSubject:   cfg.Filters.NotSubjects(),
		FromLike:     cfg.Filters.FromLike,
		NotFrom:      cfg.Filters.NotFroms(),
		DateFromUnix: dateFrom,
		DateToUnix:   dateTo,
	}, nil
}

// assembleGroup queries one group store and writes its NZB output.
// multiGroup turns an explicit single-file output path into a directory so
// groups do not overwrite each other.
func assembleGroup(group string, multiGroup bool) error {
	store, err := database.OpenGroupStore(cfg.DB.BasePath, group)
	if err != nil {
		return err
	}
	defer store.Close()

	filter, err := buildQueryFilter(group)
	if err != nil {
		return err
	}
	rows, err := store.QueryRows(filter)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		log.Printf("[NZB] %s: no rows match the filters", group)
		return nil
	}

	res := nzb.Assemble(rows, nzb.Options{
		RequireCompleteSets: cfg.NZB.RequireCompleteSets,
		SkipExe:             cfg.NZB.SkipExe,
	})
	log.Printf("[NZB] %s: %d rows -> %d collections, %d files, %d segments (dropped: %d incomplete, %d exe, %d no message-id)",
		group, len(rows), len(res.Collections), res.Files, res.Segments,
		res.DroppedIncomplete, res.DroppedExe, res.DroppedNoMessageID)
	if len(res.Collections) == 0 {
		log.Printf("[NZB] %s: nothing to write", group)
		return nil
	}

	if cfg.NZB.GroupByCollection {
		dir := cfg.NZB.OutputPath
		if dir == "" {
			dir = "."
		}
		_, err := nzb.WriteGrouped(dir, group, res.Collections)
		return err
	}
	return nzb.WriteSingle(singleOutputPath(group, multiGroup), group, res.Collections)
}

// singleOutputPath names the single-document output: <group>.nzb, with the
// sanitized subject filter appended when one was applied. An explicit
// output path wins; with several target groups it is used as a directory.
func singleOutputPath(group string, multiGroup bool) string {
	name := nzb.Sanitize(group)
	if cfg.Filters.SubjectLike != "" {
		name = fmt.Sprintf("%s_%s", name, nzb.Sanitize(cfg.Filters.SubjectLike))
	}
	name += ".nzb"

	out := cfg.NZB.OutputPath
	switch {
	case out == "":
		return name
	case multiGroup:
		return filepath.Join(out, name)
	default:
		return out
	}
}
