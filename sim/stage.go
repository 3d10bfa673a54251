package sim

// Stage is one compute kernel (or a short fixed sequence of them) in the
// per-sub-step pipeline: Assign, Sort, CellRange, Integrate. Each stage owns
// the pipeline(s) and bind group providers it needs and knows how to compute
// its own dispatch size from the instance counts the Manager hands it.
type Stage interface {
	// Name identifies the stage for logging and error messages.
	Name() string

	// Dispatch records and submits this stage's compute pass(es).
	Dispatch(d *Device) error
}
