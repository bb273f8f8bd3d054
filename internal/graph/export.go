package graph

import (
	"hash/fnv"
	"time"

	"MindCanvas/internal/domain"
)

// ExportMeta summarizes an exported graph for downstream consumers.
type ExportMeta struct {
	TotalNodes    int               `json:"total_nodes"`
	TotalEdges    int               `json:"total_edges"`
	ClusterMethod string            `json:"cluster_method"`
	ColorSeeds    map[string]uint32 `json:"color_seeds"`
	ExportedAt    time.Time         `json:"exported_at"`
}

// Export is the transfer payload handed to rendering and chat ranking.
type Export struct {
	Nodes []domain.GraphNode `json:"nodes"`
	Edges []domain.GraphEdge `json:"edges"`
	Meta  ExportMeta         `json:"metadata"`
}

// NewExport packages a built graph. Color seeds are stable FNV hashes of
// cluster labels; presentation derives actual colors from them so the core
// never carries styling.
func NewExport(g domain.Graph, method domain.ProcessingMethod, now time.Time) Export {
	seeds := make(map[string]uint32)
	for _, node := range g.Nodes {
		if _, ok := seeds[node.Cluster]; !ok {
			seeds[node.Cluster] = colorSeed(node.Cluster)
		}
	}
	return Export{
		Nodes: g.Nodes,
		Edges: g.Edges,
		Meta: ExportMeta{
			TotalNodes:    len(g.Nodes),
			TotalEdges:    len(g.Edges),
			ClusterMethod: string(method),
			ColorSeeds:    seeds,
			ExportedAt:    now,
		},
	}
}

func colorSeed(label string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(label))
	return h.Sum32()
}
