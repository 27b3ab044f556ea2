package geometry

import (
	"math"
	"testing"
)

func TestBoundingBoxExtend(t *testing.T) {
	bbox := NewBoundingBox()
	if !bbox.IsEmpty() {
		t.Fatal("new bounding box should be empty")
	}

	bbox.Extend(NewVector3(1, -2, 3))
	bbox.Extend(NewVector3(-1, 4, 0))

	if bbox.Min != NewVector3(-1, -2, 0) {
		t.Errorf("Min failed: got %v", bbox.Min)
	}
	if bbox.Max != NewVector3(1, 4, 3) {
		t.Errorf("Max failed: got %v", bbox.Max)
	}
	if bbox.Size() != NewVector3(2, 6, 3) {
		t.Errorf("Size failed: got %v", bbox.Size())
	}
	if bbox.Center() != NewVector3(0, 1, 1.5) {
		t.Errorf("Center failed: got %v", bbox.Center())
	}
	if math.Abs(bbox.Volume()-36) > 1e-10 {
		t.Errorf("Volume failed: expected 36, got %v", bbox.Volume())
	}
	if math.Abs(bbox.Diagonal()-7) > 1e-10 {
		t.Errorf("Diagonal failed: expected 7, got %v", bbox.Diagonal())
	}
}

func TestBoundingBoxEmptySize(t *testing.T) {
	bbox := NewBoundingBox()
	if bbox.Size() != (Vector3{}) {
		t.Errorf("empty Size should be zero, got %v", bbox.Size())
	}
	if bbox.Volume() != 0 {
		t.Errorf("empty Volume should be zero, got %v", bbox.Volume())
	}
}
