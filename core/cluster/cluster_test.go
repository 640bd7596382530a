package cluster

import (
	"math/rand"
	"reflect"
	"testing"

	"github.com/yw35561-wq/Mic-Scheduler/core/model"
)

// twoBlobs builds two spatially separated groups of tasks so any sane
// clustering at K=2 splits them cleanly.
func twoBlobs() []model.Task {
	var tasks []model.Task
	id := 1
	for i := 0; i < 5; i++ {
		tasks = append(tasks, model.Task{
			ID: id, System: model.SystemStruct,
			X: float64(i), Y: float64(i), Z: 0,
			Demand: []int{2, 0, 0, 0, 0, 0}, DurationHours: 4, Criticality: 8,
		})
		id++
	}
	for i := 0; i < 5; i++ {
		tasks = append(tasks, model.Task{
			ID: id, System: model.SystemElec,
			X: 100 + float64(i), Y: 100 + float64(i), Z: 30,
			Demand: []int{0, 3, 0, 0, 0, 0}, DurationHours: 2, Criticality: 2,
		})
		id++
	}
	return tasks
}

func TestRunDeterministic(t *testing.T) {
	tasks := twoBlobs()
	eng := Engine{Cfg: Config{Seed: 42}}

	a, err := eng.Run(tasks)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	b, err := eng.Run(tasks)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if a.K != b.K {
		t.Fatalf("K differs across runs: %d vs %d", a.K, b.K)
	}
	for i := range a.Clusters {
		if !reflect.DeepEqual(a.Clusters[i].TaskIDs, b.Clusters[i].TaskIDs) {
			t.Fatalf("cluster %d membership differs: %v vs %v", i, a.Clusters[i].TaskIDs, b.Clusters[i].TaskIDs)
		}
	}
	if a.RunID == b.RunID {
		t.Fatalf("each run gets a fresh id")
	}
}

func TestRunForcedKSplitsBlobs(t *testing.T) {
	tasks := twoBlobs()
	eng := Engine{Cfg: Config{ForcedK: 2, Seed: 7}}

	res, err := eng.Run(tasks)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.K != 2 || len(res.Clusters) != 2 {
		t.Fatalf("forced K=2, got K=%d with %d clusters", res.K, len(res.Clusters))
	}

	// Well separated blobs must land in distinct clusters.
	want := [][]int{{1, 2, 3, 4, 5}, {6, 7, 8, 9, 10}}
	got := [][]int{res.Clusters[0].TaskIDs, res.Clusters[1].TaskIDs}
	if !reflect.DeepEqual(got, want) && !reflect.DeepEqual(got, [][]int{want[1], want[0]}) {
		t.Fatalf("blob split wrong: %v", got)
	}
	if res.Silhouette <= 0.5 {
		t.Fatalf("clean blobs should score well, silhouette=%.3f", res.Silhouette)
	}
}

func TestRunCentroidSummaries(t *testing.T) {
	tasks := twoBlobs()
	eng := Engine{Cfg: Config{ForcedK: 2, Seed: 7}}
	res, err := eng.Run(tasks)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	for _, c := range res.Clusters {
		if len(c.TaskIDs) == 0 {
			t.Fatalf("empty cluster survived")
		}
		if c.MeanCriticality < 1 || c.MeanCriticality > 10 {
			t.Fatalf("mean criticality %.1f out of range", c.MeanCriticality)
		}
		if len(c.MeanDemand) != 6 {
			t.Fatalf("mean demand has %d entries", len(c.MeanDemand))
		}
	}
	if res.Clusters[0].DominantSystem == res.Clusters[1].DominantSystem {
		t.Fatalf("blobs have distinct dominant systems")
	}
}

func TestRunRejectsEmptyAndBadConfig(t *testing.T) {
	eng := Engine{}
	if _, err := eng.Run(nil); err == nil {
		t.Fatalf("empty batch must fail")
	}
	bad := Engine{Cfg: Config{KMin: 5, KMax: 3}}
	if _, err := bad.Run(twoBlobs()); err == nil {
		t.Fatalf("inverted K range must fail")
	}
}

func TestRunKClampedToTaskCount(t *testing.T) {
	tasks := twoBlobs()[:3]
	eng := Engine{Cfg: Config{KMin: 2, KMax: 10, Seed: 1}}
	res, err := eng.Run(tasks)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.K > 3 {
		t.Fatalf("K=%d exceeds task count", res.K)
	}
}

func TestElbowK(t *testing.T) {
	// Sharp knee at K=3.
	ks := []int{2, 3, 4, 5, 6}
	sses := []float64{100, 20, 15, 12, 10}
	if got := elbowK(ks, sses); got != 3 {
		t.Fatalf("elbow = %d, want 3", got)
	}
	// Degenerate sweeps fall back to the first K.
	if got := elbowK([]int{2}, []float64{50}); got != 2 {
		t.Fatalf("single-point sweep = %d, want 2", got)
	}
}

func TestRetryCandidates(t *testing.T) {
	if got := retryCandidates(4, 2, 10, 2); !reflect.DeepEqual(got, []int{5, 3}) {
		t.Fatalf("got %v", got)
	}
	// At the top of the range only K-1 remains.
	if got := retryCandidates(10, 2, 10, 2); !reflect.DeepEqual(got, []int{9}) {
		t.Fatalf("got %v", got)
	}
	if got := retryCandidates(2, 2, 2, 2); len(got) != 0 {
		t.Fatalf("no candidates at a pinned range, got %v", got)
	}
}

func TestKmeansAssignsEveryRow(t *testing.T) {
	rows, _ := featureMatrix(twoBlobs(), DefaultWeights())
	rng := rand.New(rand.NewSource(3))
	run := kmeans(rows, 3, 50, rng)
	if len(run.assignment) != len(rows) {
		t.Fatalf("assignment length %d", len(run.assignment))
	}
	for _, a := range run.assignment {
		if a < 0 || a >= 3 {
			t.Fatalf("assignment %d out of range", a)
		}
	}
	if run.sse < 0 {
		t.Fatalf("negative sse")
	}
}

func TestSilhouetteBounds(t *testing.T) {
	rows, _ := featureMatrix(twoBlobs(), DefaultWeights())
	rng := rand.New(rand.NewSource(3))
	run := kmeans(rows, 2, 50, rng)
	s := silhouette(rows, run.assignment, 2)
	if s < -1 || s > 1 {
		t.Fatalf("silhouette %.3f outside [-1,1]", s)
	}
}
