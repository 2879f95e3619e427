// Package path enumerates and ranks dependency paths from direct
// packages down through the resolved graph, surfacing the riskiest.
package path

import (
	"fmt"

	"github.com/NFrozeCLAWDBOT/bastion/internal/graph"
)

// ProjectRoot prefixes every emitted path, standing in for the
// manifest's own (unmodelled) package identity.
const ProjectRoot = "project@0.0.0"

// minRiskForPath is the threshold a terminal node's riskScore must
// exceed for its path to be worth reporting.
const minRiskForPath = 20

// topN bounds how many riskiest paths are returned.
const topN = 3

// Record is one reported riskiest path.
type Record struct {
	Path      []string `json:"path"`
	RiskScore int      `json:"riskScore"`
	Reason    string   `json:"reason"`
}

// Analyse enumerates simple paths from every direct node with
// riskScore > 0 down through set, and returns the three
// highest-scoring qualifying paths.
func Analyse(set *graph.Set) []Record {
	var candidates []Record

	for _, node := range set.Nodes() {
		if !node.IsDirect || node.RiskScore <= 0 {
			continue
		}
		key := graph.NewKey(node.Name, node.RawVersion)
		visited := map[graph.Key]bool{key: true}
		walk(set, key, []graph.Key{key}, 0, node.RiskScore, visited, &candidates)
	}

	sortByScoreDescending(candidates)
	if len(candidates) > topN {
		candidates = candidates[:topN]
	}
	return candidates
}

func walk(set *graph.Set, current graph.Key, chain []graph.Key, depth int, maxScore int, visited map[graph.Key]bool, out *[]Record) {
	node, ok := set.Get(current)
	if !ok {
		return
	}
	if node.RiskScore > maxScore {
		maxScore = node.RiskScore
	}

	isLeaf := len(node.DependsOn) == 0
	atDepthCap := depth >= graph.MaxDepth

	if isLeaf || atDepthCap {
		if node.RiskScore > minRiskForPath {
			*out = append(*out, Record{
				Path:      chainStrings(chain),
				RiskScore: maxScore,
				Reason:    reasonFor(node),
			})
		}
		return
	}

	for _, child := range node.DependsOn {
		if visited[child] {
			continue
		}
		childVisited := make(map[graph.Key]bool, len(visited)+1)
		for k := range visited {
			childVisited[k] = true
		}
		childVisited[child] = true
		walk(set, child, append(append([]graph.Key{}, chain...), child), depth+1, maxScore, childVisited, out)
	}
}

func reasonFor(node *graph.Node) string {
	for _, v := range node.Vulnerabilities {
		if v.CisaKev {
			return "CVE with CISA KEV listing"
		}
	}
	if len(node.Vulnerabilities) > 0 {
		return fmt.Sprintf("%d known vulnerabilities", len(node.Vulnerabilities))
	}
	return "Elevated risk score"
}

func chainStrings(chain []graph.Key) []string {
	out := make([]string, 0, len(chain)+1)
	out = append(out, ProjectRoot)
	for _, k := range chain {
		out = append(out, string(k))
	}
	return out
}

func sortByScoreDescending(records []Record) {
	for i := 1; i < len(records); i++ {
		for j := i; j > 0 && records[j].RiskScore > records[j-1].RiskScore; j-- {
			records[j], records[j-1] = records[j-1], records[j]
		}
	}
}
