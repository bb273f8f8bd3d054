package domain

// EdgeKind distinguishes intra-cluster edges from the sparse links that
// keep separate clusters connected.
type EdgeKind string

const (
	EdgeSameCluster  EdgeKind = "same_cluster"
	EdgeCrossCluster EdgeKind = "cross_cluster"
)

// GraphNode is the layout-agnostic view of one item. Presentation concerns
// (colors, physics) are computed downstream from Cluster and Quality.
type GraphNode struct {
	ID      string  `json:"id"`
	Label   string  `json:"label"`
	Cluster string  `json:"cluster"`
	Size    float64 `json:"size"`
	Quality int     `json:"quality"`
}

// GraphEdge is an undirected edge stored as an ordered pair.
// Source != Target and no unordered pair appears twice.
type GraphEdge struct {
	Source string   `json:"source"`
	Target string   `json:"target"`
	Weight float64  `json:"weight"`
	Kind   EdgeKind `json:"kind"`
}

// Graph is the transfer format consumed by rendering and chat ranking.
type Graph struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}
