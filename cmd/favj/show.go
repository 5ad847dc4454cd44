package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/franz/fav-janitor/internal/library"
	"github.com/franz/fav-janitor/internal/util"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show <path> | show <group> <identifier>",
	Short: "Show the generation metadata of a favorite",
	Long: `Display the metadata embedded in an image: the checkpoint and sampler
names, followed by the pretty-printed workflow JSON.

PNG files are read chunk by chunk (tEXt, zTXt, iTXt); other files are
searched for a JSON object in their first 5 MiB. Results, including
"nothing found", are cached per path.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)

	showCmd.Flags().Bool("no-json", false, "print only the summary lines")
	showCmd.Flags().Bool("json", false, "print the result as a JSON document")
}

// showOutput is the --json form of a metadata result
type showOutput struct {
	Path         string          `json:"path"`
	SizeBytes    int64           `json:"size_bytes"`
	CkptName     string          `json:"ckpt_name,omitempty"`
	SamplerNames []string        `json:"sampler_names"`
	Metadata     json.RawMessage `json:"metadata,omitempty"`
	Cached       bool            `json:"cached"`
}

func runShow(cmd *cobra.Command, args []string) error {
	noJSON, _ := cmd.Flags().GetBool("no-json")
	asJSON, _ := cmd.Flags().GetBool("json")

	s, err := openConfiguredSession()
	if err != nil {
		return err
	}
	defer s.Close()

	path := args[0]
	if len(args) == 2 {
		resolved, ok := s.lib.ResolvePath(args[0], args[1])
		if !ok {
			return fmt.Errorf("%w: no file for %s/%s", util.ErrNotFound, args[0], args[1])
		}
		path = resolved
	}

	size, mtime, err := util.GetFileMetadata(path)
	if err != nil {
		return fmt.Errorf("%w: %s", util.ErrNotFound, path)
	}

	m := s.lib.LoadMetadata(path)
	out := cmd.OutOrStdout()

	if asJSON {
		return writeShowJSON(out, m, size)
	}

	fmt.Fprintf(out, "File:     %s\n", m.Path)
	fmt.Fprintf(out, "Size:     %s\n", humanize.IBytes(uint64(size)))
	fmt.Fprintf(out, "Modified: %s\n", humanize.Time(time.Unix(mtime, 0)))
	fmt.Fprintln(out)
	writeSummary(out, m)

	if noJSON {
		return nil
	}
	fmt.Fprintln(out)
	if m.Found() {
		fmt.Fprintln(out, m.JSON)
	} else {
		fmt.Fprintln(out, "No JSON metadata found.")
	}
	return nil
}

// writeSummary prints the ckpt_name and sampler_name lines, "-" when unset
func writeSummary(w io.Writer, m *library.Metadata) {
	ckpt := m.CkptName
	if ckpt == "" {
		ckpt = "-"
	}
	samplers := strings.Join(m.SamplerNames, ", ")
	if samplers == "" {
		samplers = "-"
	}
	fmt.Fprintf(w, "ckpt_name: %s\n", ckpt)
	fmt.Fprintf(w, "sampler_name: %s\n", samplers)
}

func writeShowJSON(w io.Writer, m *library.Metadata, size int64) error {
	doc := showOutput{
		Path:         m.Path,
		SizeBytes:    size,
		CkptName:     m.CkptName,
		SamplerNames: m.SamplerNames,
		Cached:       m.Cached,
	}
	if doc.SamplerNames == nil {
		doc.SamplerNames = []string{}
	}
	if m.Found() {
		doc.Metadata = json.RawMessage(m.JSON)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	return nil
}
