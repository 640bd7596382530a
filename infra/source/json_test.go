package source

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/yw35561-wq/Mic-Scheduler/core/model"
)

func writeFixture(t *testing.T, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tasks.json")
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeFixture(t, `{
		"resources": {"types": ["skilled", "crane"], "capacity": [4, 1]},
		"tasks": [
			{"id": 1, "system": "Struct", "x": 1, "y": 2, "z": 3,
			 "demand": [2, 1], "duration_hours": 6, "criticality": 8},
			{"id": 2, "system": "Elec", "demand": [1, 0], "duration_hours": 3,
			 "predecessors": [1], "severity": 8, "occurrence": 7, "detection": 6},
			{"id": 3, "system": "Plumb", "demand": [1, 0], "duration_hours": 2}
		]
	}`)

	tasks, pool, err := File{Path: path}.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(pool.Types) != 2 || pool.Capacity[0] != 4 {
		t.Fatalf("pool %+v", pool)
	}
	if len(tasks) != 3 {
		t.Fatalf("got %d tasks", len(tasks))
	}

	if tasks[0].System != model.SystemStruct || tasks[0].Criticality != 8 {
		t.Fatalf("task 1 %+v", tasks[0])
	}
	// Task 2 derives criticality from its S/O/D triple: floor(8*7*6/100)=3.
	if tasks[1].Criticality != 3 {
		t.Fatalf("task 2 criticality %d", tasks[1].Criticality)
	}
	// Task 3 has neither and falls back to the project mean of the rest.
	if tasks[2].Criticality != 6 {
		t.Fatalf("task 3 fallback criticality %d", tasks[2].Criticality)
	}
	if tasks[2].Status != model.StatusPending {
		t.Fatalf("task 3 status %s", tasks[2].Status)
	}
}

func TestLoadDefaultsPool(t *testing.T) {
	path := writeFixture(t, `{"tasks": [
		{"id": 1, "system": "HVAC", "duration_hours": 2, "criticality": 5}
	]}`)
	tasks, pool, err := File{Path: path}.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(pool.Types) != 6 {
		t.Fatalf("expected default pool, got %+v", pool)
	}
	if len(tasks[0].Demand) != 6 {
		t.Fatalf("missing demand not padded: %v", tasks[0].Demand)
	}
}

func TestLoadRejects(t *testing.T) {
	if _, _, err := (File{Path: "no-such-file.json"}).Load(); err == nil {
		t.Fatalf("missing file accepted")
	}
	bad := writeFixture(t, `{"tasks": [{"id": 1, "system": "Roof", "duration_hours": 1}]}`)
	if _, _, err := (File{Path: bad}).Load(); err == nil {
		t.Fatalf("unknown system accepted")
	}
	garbage := writeFixture(t, `{not json`)
	if _, _, err := (File{Path: garbage}).Load(); err == nil {
		t.Fatalf("garbage accepted")
	}
}
