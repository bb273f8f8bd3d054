package cluster

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"MindCanvas/internal/config"
	"MindCanvas/internal/domain"
)

type fakeClassifier struct {
	labels map[string]string
	err    error
	calls  int
}

// Classify returns the canned mapping verbatim, which lets tests feed the
// clusterer responses with missing or invented ids.
func (f *fakeClassifier) Classify(_ context.Context, _ []domain.ClusterItemRef, _ int) (map[string]string, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]string, len(f.labels))
	for id, label := range f.labels {
		out[id] = label
	}
	return out, nil
}

func testConfig() config.ClusteringConfig {
	return config.ClusteringConfig{
		MaxClusters:   12,
		Eps:           0.4,
		MinEmbeddings: 3,
	}
}

func topicItems() []domain.ContentItem {
	return []domain.ContentItem{
		{ID: "a", Title: "Python Intro", KeyTopics: []string{"python"}},
		{ID: "b", Title: "Python Tricks", KeyTopics: []string{"python"}},
		{ID: "c", Title: "K8s Basics", KeyTopics: []string{"kubernetes"}},
		{ID: "d", Title: "K8s Operators", KeyTopics: []string{"kubernetes"}},
		{ID: "e", Title: "Misc Page", ContentType: domain.TypeWebContent},
	}
}

func TestClusterTotalCoverage(t *testing.T) {
	t.Parallel()

	c := New(testConfig(), nil, nil)
	items := topicItems()

	assignment := c.Cluster(context.Background(), items)
	if len(assignment.Labels) != len(items) {
		t.Fatalf("expected %d labels, got %d", len(items), len(assignment.Labels))
	}
	for _, item := range items {
		if assignment.Labels[item.ID] == "" {
			t.Fatalf("item %s left without cluster", item.ID)
		}
	}
}

func TestClusterFallbackScenario(t *testing.T) {
	t.Parallel()

	// No LLM, no embeddings: only the topic-signature strategy can run.
	c := New(testConfig(), nil, nil)
	assignment := c.Cluster(context.Background(), topicItems())

	if assignment.Method != domain.MethodFallback {
		t.Fatalf("expected fallback method, got %s", assignment.Method)
	}

	want := map[string]string{
		"a": "python", "b": "python",
		"c": "kubernetes", "d": "kubernetes",
		"e": domain.GeneralClusterLabel,
	}
	if !reflect.DeepEqual(assignment.Labels, want) {
		t.Fatalf("labels = %v, want %v", assignment.Labels, want)
	}
	if len(assignment.Clusters) != 3 {
		t.Fatalf("expected 3 clusters, got %d", len(assignment.Clusters))
	}
}

func TestClusterDeterministic(t *testing.T) {
	t.Parallel()

	c := New(testConfig(), nil, nil)
	items := topicItems()

	first := c.Cluster(context.Background(), items)
	for i := 0; i < 5; i++ {
		again := c.Cluster(context.Background(), items)
		if !reflect.DeepEqual(first.Labels, again.Labels) {
			t.Fatalf("labels changed between runs")
		}
		if !reflect.DeepEqual(first.Clusters, again.Clusters) {
			t.Fatalf("cluster metadata changed between runs")
		}
	}
}

func TestClusterLLMWins(t *testing.T) {
	t.Parallel()

	classifier := &fakeClassifier{labels: map[string]string{
		"a": "Python Programming", "b": "Python Programming",
		"c": "Container Orchestration", "d": "Container Orchestration",
		"e": "Container Orchestration",
	}}
	c := New(testConfig(), classifier, nil)

	assignment := c.Cluster(context.Background(), topicItems())
	if assignment.Method != domain.MethodAI {
		t.Fatalf("expected ai method, got %s", assignment.Method)
	}
	if assignment.Labels["a"] != "Python Programming" {
		t.Fatalf("unexpected label for a: %s", assignment.Labels["a"])
	}
	if classifier.calls != 1 {
		t.Fatalf("expected 1 classify call, got %d", classifier.calls)
	}
}

func TestClusterLLMFailureDegrades(t *testing.T) {
	t.Parallel()

	classifier := &fakeClassifier{err: errors.New("rate limited")}
	c := New(testConfig(), classifier, nil)

	assignment := c.Cluster(context.Background(), topicItems())
	if assignment.Method != domain.MethodFallback {
		t.Fatalf("expected degradation to fallback, got %s", assignment.Method)
	}
	if assignment.Labels["a"] != "python" {
		t.Fatalf("unexpected label after degradation: %s", assignment.Labels["a"])
	}
}

func TestClusterLLMResponseValidation(t *testing.T) {
	t.Parallel()

	// The classifier misses item e and invents an id that does not exist.
	classifier := &fakeClassifier{labels: map[string]string{
		"a": "Python Programming", "b": "Python Programming",
		"c": "Container Orchestration", "d": "Container Orchestration",
		"ghost": "Haunted Cluster",
	}}
	c := New(testConfig(), classifier, nil)

	assignment := c.Cluster(context.Background(), topicItems())
	if assignment.Labels["e"] != domain.GeneralClusterLabel {
		t.Fatalf("missing id should land in General, got %s", assignment.Labels["e"])
	}
	if _, ok := assignment.Labels["ghost"]; ok {
		t.Fatalf("hallucinated id survived into the assignment")
	}
	for _, cl := range assignment.Clusters {
		for _, id := range cl.MemberIDs {
			if id == "ghost" {
				t.Fatalf("hallucinated id appears in cluster %s", cl.Label)
			}
		}
	}
}

func TestClusterMaxClustersBound(t *testing.T) {
	t.Parallel()

	classifier := &fakeClassifier{labels: map[string]string{
		"a": "One", "b": "One",
		"c": "Two", "d": "Two",
		"e": "Three",
	}}
	cfg := testConfig()
	cfg.MaxClusters = 2
	c := New(cfg, classifier, nil)

	assignment := c.Cluster(context.Background(), topicItems())
	if assignment.Labels["e"] != domain.GeneralClusterLabel {
		t.Fatalf("smallest cluster should fold into General, got %s", assignment.Labels["e"])
	}
	if assignment.Labels["a"] != "One" || assignment.Labels["c"] != "Two" {
		t.Fatalf("largest clusters should survive: %v", assignment.Labels)
	}
}

func TestClusterDensityScenario(t *testing.T) {
	t.Parallel()

	items := []domain.ContentItem{
		{ID: "a1", KeyTopics: []string{"python"}, Embedding: []float64{1, 0}},
		{ID: "a2", KeyTopics: []string{"python"}, Embedding: []float64{0.99, 0.01}},
		{ID: "a3", KeyTopics: []string{"python"}, Embedding: []float64{0.98, 0.02}},
		{ID: "b1", KeyTopics: []string{"kubernetes"}, Embedding: []float64{0, 1}},
		{ID: "b2", KeyTopics: []string{"kubernetes"}, Embedding: []float64{0.01, 0.99}},
		{ID: "b3", KeyTopics: []string{"kubernetes"}, Embedding: []float64{0.02, 0.98}},
		{ID: "noise", KeyTopics: []string{"misc"}, Embedding: []float64{-1, -1}},
		{ID: "bare", KeyTopics: []string{"misc"}},
	}

	c := New(testConfig(), nil, nil)
	assignment := c.Cluster(context.Background(), items)

	if assignment.Method != domain.MethodEmbedding {
		t.Fatalf("expected embedding method, got %s", assignment.Method)
	}
	for _, id := range []string{"a1", "a2", "a3"} {
		if assignment.Labels[id] != "python" {
			t.Fatalf("item %s in %q, want python", id, assignment.Labels[id])
		}
	}
	for _, id := range []string{"b1", "b2", "b3"} {
		if assignment.Labels[id] != "kubernetes" {
			t.Fatalf("item %s in %q, want kubernetes", id, assignment.Labels[id])
		}
	}
	for _, id := range []string{"noise", "bare"} {
		if assignment.Labels[id] != domain.GeneralClusterLabel {
			t.Fatalf("item %s in %q, want General", id, assignment.Labels[id])
		}
	}
}

func TestClusterEmptyInput(t *testing.T) {
	t.Parallel()

	c := New(testConfig(), nil, nil)
	assignment := c.Cluster(context.Background(), nil)
	if len(assignment.Labels) != 0 || len(assignment.Clusters) != 0 {
		t.Fatalf("expected empty assignment, got %+v", assignment)
	}
}

func TestClusterMetadataTerms(t *testing.T) {
	t.Parallel()

	c := New(testConfig(), nil, nil)
	assignment := c.Cluster(context.Background(), topicItems())

	for _, cl := range assignment.Clusters {
		if cl.Label == "python" {
			if len(cl.RepresentativeTerms) == 0 || cl.RepresentativeTerms[0] != "python" {
				t.Fatalf("unexpected representative terms: %v", cl.RepresentativeTerms)
			}
			return
		}
	}
	t.Fatalf("python cluster not found")
}
