// Package favorites parses the hand-edited favorites list: a two-level
// "group key:" / "- identifier" idiom, not general YAML.
package favorites

import (
	"bufio"
	"io"
	"os"
	"strings"
)

// DefaultFileName is the favorites list looked up in a base directory
const DefaultFileName = "fav.yaml"

// Group is one group key with its identifiers in first-seen order
type Group struct {
	Key         string
	Identifiers []string
}

// Parse reads the list from r. It never fails: malformed lines are skipped
// and a read error ends parsing with whatever was collected so far.
func Parse(r io.Reader) []Group {
	var (
		groups  []Group
		index   = make(map[string]int)
		seen    = make(map[string]map[string]bool)
		current = -1
	)

	br := bufio.NewReader(r)

	for {
		raw, err := br.ReadString('\n')
		if raw == "" && err != nil {
			break
		}

		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		isItem := strings.HasPrefix(line, "-")

		if !isItem && strings.HasSuffix(line, ":") {
			key := strings.TrimSpace(strings.TrimSuffix(line, ":"))
			if key == "" {
				current = -1
				continue
			}
			pos, ok := index[key]
			if !ok {
				pos = len(groups)
				index[key] = pos
				seen[key] = make(map[string]bool)
				groups = append(groups, Group{Key: key})
			}
			current = pos
			continue
		}

		if !isItem || current < 0 {
			continue
		}

		value := strings.TrimSpace(line[1:])
		if value == "" {
			continue
		}
		g := &groups[current]
		if seen[g.Key][value] {
			continue
		}
		seen[g.Key][value] = true
		g.Identifiers = append(g.Identifiers, value)
	}

	return groups
}

// ParseFile parses the list at path. A missing or unreadable file yields
// no groups rather than an error.
func ParseFile(path string) []Group {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	return Parse(f)
}

// Count returns the total number of identifiers across groups
func Count(groups []Group) int {
	n := 0
	for _, g := range groups {
		n += len(g.Identifiers)
	}
	return n
}
