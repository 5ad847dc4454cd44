package main

import (
	"fmt"

	"github.com/franz/fav-janitor/internal/util"
	"github.com/spf13/cobra"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <group> <identifier>...",
	Short: "Print the file behind one or more favorites",
	Long: `Resolve favorites of a group to files and print one path per line.

The cache is consulted first; a cached file that no longer exists is
dropped and the group folder is scanned again. Images are preferred over
other files whose name contains the identifier.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runResolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)

	resolveCmd.Flags().Bool("source", false, "append where each path came from (cache or scan)")
}

func runResolve(cmd *cobra.Command, args []string) error {
	showSource, _ := cmd.Flags().GetBool("source")
	groupKey, identifiers := args[0], args[1:]

	s, err := openConfiguredSession()
	if err != nil {
		return err
	}
	defer s.Close()

	out := cmd.OutOrStdout()
	missing := 0
	for _, id := range identifiers {
		res := s.lib.Lookup(groupKey, id)
		if !res.Found() {
			util.WarnLog("No file for %s/%s", groupKey, id)
			missing++
			continue
		}
		if showSource {
			fmt.Fprintf(out, "%s\t%s\n", res.Path, res.Source)
		} else {
			fmt.Fprintln(out, res.Path)
		}
	}

	if missing > 0 {
		return fmt.Errorf("%w: %d of %d favorites unresolved", util.ErrNotFound, missing, len(identifiers))
	}
	return nil
}
