package cli

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/go-while/go-nzbidx/internal/database"
	"github.com/go-while/go-nzbidx/internal/models"
	"github.com/go-while/go-nzbidx/internal/nntp"
)

var groupsFlags struct {
	prefix string
	noSave bool
	cached bool
}

var groupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "List newsgroups on the server into the catalog",
	Long: `Groups runs LIST ACTIVE against the server, refreshes the local group
catalog (newsgroups.sqlite) and prints the result. With --cached it
reads the catalog instead of contacting the server.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if groupsFlags.cached {
			return listCachedGroups()
		}
		return listServerGroups()
	},
}

func init() {
	groupsCmd.Flags().StringVar(&groupsFlags.prefix, "prefix", "", "wildmat filter, e.g. alt.binaries.*")
	groupsCmd.Flags().BoolVar(&groupsFlags.noSave, "no-save", false, "do not persist the listing into the catalog")
	groupsCmd.Flags().BoolVar(&groupsFlags.cached, "cached", false, "read the local catalog instead of the server")
	rootCmd.AddCommand(groupsCmd)
}

func listServerGroups() error {
	clientCfg, err := newClientConfig(1)
	if err != nil {
		return err
	}
	conn := nntp.NewConn(clientCfg)
	if err := conn.Connect(); err != nil {
		return err
	}
	defer conn.Quit()

	groups, err := conn.ListActive(groupsFlags.prefix)
	if err != nil {
		return err
	}
	if !groupsFlags.noSave {
		cat, err := database.OpenCatalog(cfg.DB.BasePath)
		if err != nil {
			return err
		}
		defer cat.Close()
		if err := cat.UpsertGroups(groups); err != nil {
			return err
		}
		log.Printf("[GROUPS] cataloged %d groups in %s", len(groups), cat.Path)
	}
	printGroupTable(groups)
	return nil
}

func listCachedGroups() error {
	cat, err := database.OpenCatalog(cfg.DB.BasePath)
	if err != nil {
		return err
	}
	defer cat.Close()

	groups, err := cat.ListGroups(groupsFlags.prefix)
	if err != nil {
		return err
	}
	printGroupTable(groups)
	return nil
}

func printGroupTable(groups []models.GroupInfo) {
	rows := make([][]string, 0, len(groups))
	for _, g := range groups {
		rows = append(rows, []string{
			g.Name,
			fmt.Sprintf("%d", g.Count),
			fmt.Sprintf("%d", g.First),
			fmt.Sprintf("%d", g.Last),
			g.Status,
		})
	}
	printTable(os.Stdout, rows, []string{"group", "count", "first", "last", "status"})
	fmt.Printf("%d groups\n", len(groups))
}
