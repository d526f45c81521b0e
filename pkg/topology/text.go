package topology

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// LoadText parses the alternate line-based topology format from
// original_source/graph.py's read_txt_file: comma-separated lines of
// either "node,name,x,y" or "link,name,src,dst". Blank lines and lines
// starting with '#' are ignored. This format carries no zone/disaster
// schema; zones must be supplied separately when this loader is used.
func LoadText(path string) (*Topology, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("topology: reading %s: %w", path, err)
	}
	defer f.Close()

	t := New()
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, ",")
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}
		switch fields[0] {
		case "node":
			if len(fields) != 4 {
				return nil, fmt.Errorf("topology: %s:%d: malformed node line", path, lineNo)
			}
			x, err := strconv.ParseFloat(fields[2], 64)
			if err != nil {
				return nil, fmt.Errorf("topology: %s:%d: invalid x: %w", path, lineNo, err)
			}
			y, err := strconv.ParseFloat(fields[3], 64)
			if err != nil {
				return nil, fmt.Errorf("topology: %s:%d: invalid y: %w", path, lineNo, err)
			}
			t.AddNode(fields[1], x, y)
		case "link":
			if len(fields) != 4 {
				return nil, fmt.Errorf("topology: %s:%d: malformed link line", path, lineNo)
			}
			src, ok1 := t.Nodes[fields[2]]
			dst, ok2 := t.Nodes[fields[3]]
			if !ok1 || !ok2 {
				return nil, fmt.Errorf("topology: %s:%d: link references unknown node", path, lineNo)
			}
			length := haversineKM(src.X, src.Y, dst.X, dst.Y)
			if _, err := t.AddLink(fields[1], fields[2], fields[3], length); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("topology: %s:%d: unknown record kind %q", path, lineNo, fields[0])
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("topology: scanning %s: %w", path, err)
	}
	return t, nil
}
