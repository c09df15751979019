// Package harness runs storage scenarios written in YAML against any
// storage backend.
//
// A scenario is a list of engine operations (new, create, update, delete,
// link, unlink, save, reload, close) followed by assertions on the resulting
// state. Entities are named by aliases in the scenario; ids come from a
// deterministic generator so two runs, or two backends, produce the same
// trace. The trace and final counts can be compared against a golden file
// with RunWithGolden.
//
// Example scenario:
//
//	name: california
//	description: a city is reachable from its state after reload
//	steps:
//	  - {op: create, kind: State, as: ca, attrs: {name: California}}
//	  - {op: create, kind: City, as: sf, attrs: {name: San Francisco}, refs: {state_id: ca}}
//	  - {op: reload}
//	assertions:
//	  - {type: children, ref: ca, kind: City, refs: [sf]}
package harness
