// Package types defines the GPU-aligned buffer layouts shared by every stage of
// the collision core: Parameters, Instance, Result, SortParams, and CellIndex.
// Each type pairs a Go struct with an embedded WGSL struct definition of the same
// name and layout, following the convention the struct is never allowed to drift
// out of sync with its .wgsl source.
package types

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"
)

// GPUParametersSource is the canonical WGSL definition of the Parameters struct.
// Matches GPUParameters layout exactly (32 bytes, std430 aligned).
//
//go:embed assets/parameters.wgsl
var GPUParametersSource string

// GPUParameters holds the scalar simulation configuration read by every stage.
// Matches the WGSL Parameters struct layout exactly (see GPUParametersSource).
// Size: 32 bytes. Gravity, drag, and stiffness live here rather than as WGSL
// compile-time constants so a scenario can zero gravity or drag without a
// shader recompile.
type GPUParameters struct {
	TimeStep    float32 // offset 0: Δt for one sub-step
	Boundary    float32 // offset 4: half-extent of the cube
	GridSize    float32 // offset 8: cell side length
	Stiffness   float32 // offset 12: penalty-method contact stiffness
	Gravity     float32 // offset 16: downward acceleration
	Drag        float32 // offset 20: cubic air-resistance coefficient
	Restitution float32 // offset 24: advisory coefficient, not applied by the current boundary rule
	_pad0       float32 // offset 28: padding to 32 bytes
}

// Size returns the size of the GPUParameters struct in bytes.
func (p *GPUParameters) Size() int {
	return int(unsafe.Sizeof(*p))
}

// Marshal serializes the GPUParameters struct into a byte buffer suitable for GPU upload.
func (p *GPUParameters) Marshal() []byte {
	buf := make([]byte, p.Size())
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(p.TimeStep))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(p.Boundary))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(p.GridSize))
	binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(p.Stiffness))
	binary.LittleEndian.PutUint32(buf[16:20], math.Float32bits(p.Gravity))
	binary.LittleEndian.PutUint32(buf[20:24], math.Float32bits(p.Drag))
	binary.LittleEndian.PutUint32(buf[24:28], math.Float32bits(p.Restitution))
	binary.LittleEndian.PutUint32(buf[28:32], 0) // _pad0
	return buf
}

// GPUInstanceSource is the canonical WGSL definition of the Instance struct.
// Matches GPUInstance layout exactly (48 bytes, std430 aligned).
//
//go:embed assets/instance.wgsl
var GPUInstanceSource string

// GPUInstance is the GPU-aligned representation of a single sphere.
// Matches the WGSL Instance struct layout exactly (see GPUInstanceSource).
// Size: 48 bytes.
type GPUInstance struct {
	ID        uint32     // offset  0: stable id, unaffected by sorting
	Radius    float32    // offset  4
	CellIndex uint32     // offset  8: derived, recomputed every sub-step
	_pad0     uint32     // offset 12
	Position  [3]float32 // offset 16
	_pad1     uint32     // offset 28
	Velocity  [3]float32 // offset 32
	_pad2     uint32     // offset 44
}

// Size returns the size of the GPUInstance struct in bytes.
func (g *GPUInstance) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUInstance struct into a byte buffer suitable for GPU upload.
func (g *GPUInstance) Marshal() []byte {
	buf := make([]byte, g.Size())
	binary.LittleEndian.PutUint32(buf[0:4], g.ID)
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(g.Radius))
	binary.LittleEndian.PutUint32(buf[8:12], g.CellIndex)
	binary.LittleEndian.PutUint32(buf[12:16], 0) // _pad0
	for i := range 3 {
		binary.LittleEndian.PutUint32(buf[16+i*4:20+i*4], math.Float32bits(g.Position[i]))
	}
	binary.LittleEndian.PutUint32(buf[28:32], 0) // _pad1
	for i := range 3 {
		binary.LittleEndian.PutUint32(buf[32+i*4:36+i*4], math.Float32bits(g.Velocity[i]))
	}
	binary.LittleEndian.PutUint32(buf[44:48], 0) // _pad2
	return buf
}

// UnmarshalGPUInstance decodes a single 48-byte Instance record read back from the
// GPU. Used when the host inspects the post-sort or post-integrate instance buffer
// for diagnostics or testing.
func UnmarshalGPUInstance(buf []byte) GPUInstance {
	var g GPUInstance
	g.ID = binary.LittleEndian.Uint32(buf[0:4])
	g.Radius = math.Float32frombits(binary.LittleEndian.Uint32(buf[4:8]))
	g.CellIndex = binary.LittleEndian.Uint32(buf[8:12])
	for i := range 3 {
		g.Position[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[16+i*4 : 20+i*4]))
	}
	for i := range 3 {
		g.Velocity[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[32+i*4 : 36+i*4]))
	}
	return g
}

// GPUResultSource is the canonical WGSL definition of the Result struct.
// Matches GPUResult layout exactly (32 bytes, std430 aligned).
//
//go:embed assets/result.wgsl
var GPUResultSource string

// GPUResult is the integration output for a given stable id, scattered by the
// Integration & Contact stage. Matches the WGSL Result struct layout exactly
// (see GPUResultSource). Size: 32 bytes.
type GPUResult struct {
	Position [3]float32 // offset  0
	_pad0    float32    // offset 12
	Velocity [3]float32 // offset 16
	_pad1    float32    // offset 28
}

// Size returns the size of the GPUResult struct in bytes.
func (r *GPUResult) Size() int {
	return int(unsafe.Sizeof(*r))
}

// Marshal serializes the GPUResult struct into a byte buffer suitable for GPU upload.
func (r *GPUResult) Marshal() []byte {
	buf := make([]byte, r.Size())
	for i := range 3 {
		binary.LittleEndian.PutUint32(buf[i*4:4+i*4], math.Float32bits(r.Position[i]))
	}
	binary.LittleEndian.PutUint32(buf[12:16], 0) // _pad0
	for i := range 3 {
		binary.LittleEndian.PutUint32(buf[16+i*4:20+i*4], math.Float32bits(r.Velocity[i]))
	}
	binary.LittleEndian.PutUint32(buf[28:32], 0) // _pad1
	return buf
}

// UnmarshalGPUResult decodes a single 32-byte Result record read back from the GPU.
func UnmarshalGPUResult(buf []byte) GPUResult {
	var r GPUResult
	for i := range 3 {
		r.Position[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4 : 4+i*4]))
	}
	for i := range 3 {
		r.Velocity[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[16+i*4 : 20+i*4]))
	}
	return r
}

// UnmarshalGPUResults decodes a contiguous readback buffer into a slice of GPUResult.
func UnmarshalGPUResults(buf []byte) []GPUResult {
	size := (&GPUResult{}).Size()
	out := make([]GPUResult, len(buf)/size)
	for i := range out {
		out[i] = UnmarshalGPUResult(buf[i*size : (i+1)*size])
	}
	return out
}

// UnmarshalGPUInstances decodes a contiguous readback buffer into a slice of GPUInstance.
func UnmarshalGPUInstances(buf []byte) []GPUInstance {
	size := (&GPUInstance{}).Size()
	out := make([]GPUInstance, len(buf)/size)
	for i := range out {
		out[i] = UnmarshalGPUInstance(buf[i*size : (i+1)*size])
	}
	return out
}

// GPUSortParamsSource is the canonical WGSL definition of the SortParams struct.
// Matches GPUSortParams layout exactly (8 bytes, std430 aligned).
//
//go:embed assets/sort_params.wgsl
var GPUSortParamsSource string

// GPUSortParams carries the current (k, j) stride pair of the bitonic network.
// Rewritten by the host before every sort dispatch. Matches the WGSL SortParams
// struct layout exactly (see GPUSortParamsSource). Size: 8 bytes.
type GPUSortParams struct {
	J uint32
	K uint32
}

// Size returns the size of the GPUSortParams struct in bytes.
func (s *GPUSortParams) Size() int {
	return int(unsafe.Sizeof(*s))
}

// Marshal serializes the GPUSortParams struct into a byte buffer suitable for GPU upload.
func (s *GPUSortParams) Marshal() []byte {
	buf := make([]byte, s.Size())
	binary.LittleEndian.PutUint32(buf[0:4], s.J)
	binary.LittleEndian.PutUint32(buf[4:8], s.K)
	return buf
}

// GPUCellIndexSource is the canonical WGSL definition of the CellIndex struct.
// Matches GPUCellIndex layout exactly (8 bytes, std430 aligned).
//
//go:embed assets/cell_index.wgsl
var GPUCellIndexSource string

// GPUCellIndex is the half-open [start, end) range into the sorted instance array
// for one grid cell. start == end means the cell is empty. Matches the WGSL
// CellIndex struct layout exactly (see GPUCellIndexSource). Size: 8 bytes.
type GPUCellIndex struct {
	Start uint32
	End   uint32
}

// Size returns the size of the GPUCellIndex struct in bytes.
func (c *GPUCellIndex) Size() int {
	return int(unsafe.Sizeof(*c))
}

// Marshal serializes the GPUCellIndex struct into a byte buffer suitable for GPU upload.
func (c *GPUCellIndex) Marshal() []byte {
	buf := make([]byte, c.Size())
	binary.LittleEndian.PutUint32(buf[0:4], c.Start)
	binary.LittleEndian.PutUint32(buf[4:8], c.End)
	return buf
}

// UnmarshalGPUCellIndex decodes a single 8-byte CellIndex record read back from the GPU.
func UnmarshalGPUCellIndex(buf []byte) GPUCellIndex {
	return GPUCellIndex{
		Start: binary.LittleEndian.Uint32(buf[0:4]),
		End:   binary.LittleEndian.Uint32(buf[4:8]),
	}
}

// UnmarshalGPUCellIndices decodes a contiguous readback buffer into a slice of GPUCellIndex.
func UnmarshalGPUCellIndices(buf []byte) []GPUCellIndex {
	size := (&GPUCellIndex{}).Size()
	out := make([]GPUCellIndex, len(buf)/size)
	for i := range out {
		out[i] = UnmarshalGPUCellIndex(buf[i*size : (i+1)*size])
	}
	return out
}
