package fingerprint

import (
	"errors"
	"testing"
)

func TestAssignDeterministic(t *testing.T) {
	a := Assign(2, 3, 8)
	b := Assign(2, 3, 8)
	if a != b {
		t.Fatalf("same coordinates produced different identities:\n%+v\n%+v", a, b)
	}
}

func TestAssignDistinctWithinCapacity(t *testing.T) {
	const instances, workers = 8, 8 // exactly Capacity

	seen := map[Identity]string{}
	for inst := 0; inst < instances; inst++ {
		for slot := 0; slot < workers; slot++ {
			id := Assign(inst, slot, workers)
			key := id
			key.InstanceID = 0
			key.WorkerSlot = 0
			if prev, ok := seen[key]; ok {
				t.Fatalf("fingerprint collision: instance=%d slot=%d repeats %s", inst, slot, prev)
			}
			seen[key] = id.UserAgent
		}
	}
	if len(seen) != Capacity {
		t.Fatalf("expected %d distinct identities, got %d", Capacity, len(seen))
	}
}

func TestAssignFieldsPopulated(t *testing.T) {
	id := Assign(0, 0, 4)
	if id.UserAgent == "" || id.Locale == "" || id.Timezone == "" {
		t.Fatalf("identity has empty fields: %+v", id)
	}
	if id.Viewport.Width <= 0 || id.Viewport.Height <= 0 {
		t.Fatalf("bad viewport: %+v", id.Viewport)
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(8, 8); err != nil {
		t.Fatalf("capacity-exact config rejected: %v", err)
	}
	if err := Validate(8, 9); !errors.Is(err, ErrPoolCapacity) {
		t.Fatalf("err = %v, want ErrPoolCapacity for 72 workers over capacity 64", err)
	}
	if err := Validate(0, 5); err == nil {
		t.Fatal("expected error for zero instances")
	}
}
