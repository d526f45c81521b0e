package topology

import (
	"sort"
)

func kspKey(a, b string) string { return a + "|" + b }

// KShortestPaths returns the precomputed k shortest simple paths
// between src and dst, ordered by hop count then by the tiebreak order
// they were discovered in. The reverse lookup for the pair returns the
// same paths in the same order, each with its node sequence reversed.
func (t *Topology) KShortestPaths(src, dst string) []*Path {
	return t.ksp[kspKey(src, dst)]
}

// ComputeKShortestPaths precomputes the k hop-shortest simple paths for
// every pair of DC-eligible endpoints (source nodes and DCs), using a
// Yen's-algorithm-style successive shortest-path search over an
// unweighted (hop-counted) graph. Results are indexed symmetrically:
// the path list for (a, b) is also usable, reversed, for (b, a).
func (t *Topology) ComputeKShortestPaths(k int, endpoints []string) {
	t.KPaths = k
	sorted := append([]string(nil), endpoints...)
	sort.Strings(sorted)
	for i, a := range sorted {
		for _, b := range sorted[i+1:] {
			paths := t.yenKShortest(a, b, k)
			t.ksp[kspKey(a, b)] = paths
			t.ksp[kspKey(b, a)] = reversePaths(paths)
		}
	}
}

func reversePaths(paths []*Path) []*Path {
	out := make([]*Path, len(paths))
	for i, p := range paths {
		rev := make([]string, len(p.Nodes))
		for j, n := range p.Nodes {
			rev[len(p.Nodes)-1-j] = n
		}
		out[i] = NewPath(rev, p.Length)
	}
	return out
}

// bfsShortest finds the shortest simple path from src to dst avoiding
// the given removed nodes and removed edges (undirected, keyed both
// ways). Returns nil if no path exists.
func (t *Topology) bfsShortest(src, dst string, removedNodes map[string]bool, removedEdges map[string]bool) []string {
	if src == dst {
		return []string{src}
	}
	type frame struct {
		node string
	}
	visited := map[string]bool{src: true}
	prev := map[string]string{}
	queue := []string{src}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, nb := range t.Neighbors(cur) {
			if removedNodes[nb] || visited[nb] {
				continue
			}
			edgeKey := kspKey(cur, nb)
			if removedEdges[edgeKey] || removedEdges[kspKey(nb, cur)] {
				continue
			}
			visited[nb] = true
			prev[nb] = cur
			if nb == dst {
				// reconstruct
				path := []string{dst}
				for p := cur; ; p = prev[p] {
					path = append([]string{p}, path...)
					if p == src {
						break
					}
				}
				return path
			}
			queue = append(queue, nb)
		}
		_ = frame{}
	}
	return nil
}

func (t *Topology) pathLength(nodes []string) float64 {
	total := 0.0
	for i := 0; i+1 < len(nodes); i++ {
		if id, ok := t.LinkBetween(nodes[i], nodes[i+1]); ok {
			total += t.Links[id].Length
		}
	}
	return total
}

func nodesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// yenKShortest is a standard Yen's-algorithm simple-path search: find
// the shortest path, then repeatedly find the best deviation from a
// prefix of an already-accepted path, removing the edge that would
// repeat a known continuation and the prefix's interior nodes.
func (t *Topology) yenKShortest(src, dst string, k int) []*Path {
	first := t.bfsShortest(src, dst, nil, nil)
	if first == nil {
		return nil
	}
	accepted := [][]string{first}

	type candidate struct {
		nodes []string
	}
	var candidates []candidate

	for len(accepted) < k {
		prevPath := accepted[len(accepted)-1]
		for i := 0; i < len(prevPath)-1; i++ {
			spurNode := prevPath[i]
			rootPath := prevPath[:i+1]

			removedEdges := map[string]bool{}
			for _, p := range accepted {
				if len(p) > i && nodesEqual(rootPath, p[:i+1]) {
					removedEdges[kspKey(p[i], p[i+1])] = true
				}
			}
			removedNodes := map[string]bool{}
			for _, n := range rootPath[:len(rootPath)-1] {
				removedNodes[n] = true
			}

			spurPath := t.bfsShortest(spurNode, dst, removedNodes, removedEdges)
			if spurPath == nil {
				continue
			}
			total := append(append([]string(nil), rootPath[:len(rootPath)-1]...), spurPath...)

			dup := false
			for _, p := range accepted {
				if nodesEqual(p, total) {
					dup = true
					break
				}
			}
			for _, c := range candidates {
				if nodesEqual(c.nodes, total) {
					dup = true
					break
				}
			}
			if !dup {
				candidates = append(candidates, candidate{nodes: total})
			}
		}

		if len(candidates) == 0 {
			break
		}
		sort.SliceStable(candidates, func(i, j int) bool {
			return len(candidates[i].nodes) < len(candidates[j].nodes)
		})
		best := candidates[0]
		candidates = candidates[1:]
		accepted = append(accepted, best.nodes)
	}

	out := make([]*Path, 0, len(accepted))
	for _, nodes := range accepted {
		out = append(out, NewPath(nodes, t.pathLength(nodes)))
	}
	return out
}
