// Package shaders embeds the WGSL compute kernels for the four physics stages so
// the sim package and any binary built from it can dispatch without depending on
// a working directory layout at runtime.
package shaders

import _ "embed"

//go:embed grid_assign.wgsl
var GridAssignSource string

//go:embed bitonic_sort.wgsl
var BitonicSortSource string

//go:embed cell_clear.wgsl
var CellClearSource string

//go:embed cell_build.wgsl
var CellBuildSource string

//go:embed integrate.wgsl
var IntegrateSource string
