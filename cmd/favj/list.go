package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/franz/fav-janitor/internal/favorites"
	"github.com/franz/fav-janitor/internal/library"
	"github.com/franz/fav-janitor/internal/util"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List favorite groups from the favorites list",
	Long: `List the groups and identifiers of the favorites list.

With --resolve every favorite is resolved to its file, using and updating
the cache; unresolved favorites are shown with a "-" path.`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().Bool("resolve", false, "resolve every favorite to a file")
	listCmd.Flags().String("format", formatTable, "output format (table, csv, markdown)")
}

func runList(cmd *cobra.Command, args []string) error {
	resolveAll, _ := cmd.Flags().GetBool("resolve")
	format, _ := cmd.Flags().GetString("format")
	if err := validFormat(format); err != nil {
		return err
	}

	s, err := openConfiguredSession()
	if err != nil {
		return err
	}
	defer s.Close()

	groups := s.lib.ListFavoriteGroups()
	if len(groups) == 0 {
		util.WarnLog("No favorites found in %s", s.lib.FavoritesPath())
		return nil
	}

	if resolveAll {
		headers, rows := resolvedRows(s.lib, groups)
		printTable(os.Stdout, headers, rows, nil, format)
	} else {
		headers, rows := groupRows(groups)
		printTable(os.Stdout, headers, rows, []columnAlignment{alignLeft, alignRight, alignLeft}, format)
	}

	util.InfoLog("%d favorites in %d groups", favorites.Count(groups), len(groups))
	return nil
}

func groupRows(groups []favorites.Group) ([]string, [][]string) {
	rows := make([][]string, 0, len(groups))
	for _, g := range groups {
		rows = append(rows, []string{g.Key, fmt.Sprintf("%d", len(g.Identifiers)), strings.Join(g.Identifiers, ", ")})
	}
	return []string{"Group", "Count", "Identifiers"}, rows
}

func resolvedRows(lib *library.Library, groups []favorites.Group) ([]string, [][]string) {
	var rows [][]string
	for _, g := range groups {
		for _, id := range g.Identifiers {
			res := lib.Lookup(g.Key, id)
			path := "-"
			if res.Found() {
				path = displayPath(lib.BaseDir(), res.Path)
			}
			rows = append(rows, []string{g.Key, id, path, string(res.Source)})
		}
	}
	return []string{"Group", "Identifier", "File", "Source"}, rows
}

// displayPath shows paths inside base relative to it
func displayPath(base, path string) string {
	rel, err := filepath.Rel(base, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}
