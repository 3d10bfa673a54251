package sim

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// ConfigError reports a configuration invariant violated at initialization —
// grid_size smaller than 2*max_radius, a non-positive boundary, or an instance
// count the manager cannot pad to a power of two. Non-recoverable.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string {
	return "sim: config error: " + e.Msg
}

// ResourceError reports a GPU allocation or device request failure. Fatal.
type ResourceError struct {
	Op  string
	Err error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("sim: resource error during %s: %v", e.Op, e.Err)
}

func (e *ResourceError) Unwrap() error {
	return e.Err
}

// DeviceLostError reports that the backend failed a staging buffer map during
// Device.ReadBuffer, treated as device loss. The manager must be torn down and
// rebuilt on receipt.
type DeviceLostError struct {
	Status wgpu.BufferMapAsyncStatus
}

func (e *DeviceLostError) Error() string {
	return fmt.Sprintf("sim: device lost (map status %v)", e.Status)
}

// Instability is an advisory condition, not an error: the core does not
// self-detect it. DetectInstability scans a readback for NaN positions and
// returns one Instability per offending stable id so the host may log and
// reseed them. Position is the position from that readback and may itself
// contain NaN.
type Instability struct {
	InstanceID uint32
	Position   [3]float32
}
