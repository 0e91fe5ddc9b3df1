package fractal

import "github.com/go-gl/mathgl/mgl32"

// levelJob updates every part of one level from the already-resolved level above it.
// Execute(i) reads only parents[i/childCount] and writes only parts[i] and matrices[i], so all
// indices of a level may run concurrently.
type levelJob struct {
	parents    []Part
	parts      []Part
	matrices   []mgl32.Mat3x4
	childCount int
	scale      float32
	deltaTime  float32
}

// Execute updates part i and writes its packed transform.
func (j *levelJob) Execute(i int) {
	parent := j.parents[ParentIndex(i, j.childCount)]
	j.matrices[i] = updatePart(&parent, &j.parts[i], j.scale, j.deltaTime)
}
