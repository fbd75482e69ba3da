// Package harness runs conformance scenarios against published clusters.
//
// A scenario names one cluster, binds its parameters, supplies an
// execution context and states what a single run must produce: either the
// boundary outputs or the error codes that stop it.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: hello_world
//	description: "Fills when a exceeds b"
//	clusters: ../clusters          # optional, relative to this file
//	cluster: hello_world
//	version: "1.0.0"
//	params:
//	  price: 2.0
//	context:
//	  values: { price: 5.5 }
//	expect:
//	  outputs:
//	    action_outcome: Filled
//	assertions:
//	  - type: step_order
//	    nodes: [gt, emit_if_true, ack_action]
//	  - type: outcome
//	    node: ack_action
//	    outcome: Filled
//
// A scenario that must be rejected names the code instead:
//
//	expect:
//	  error: InvalidWiring
//
// Codes are expansion codes (MISSING_CLUSTER), validation kinds
// (InvalidWiring) or execution kinds (ActionFailed).
//
// # Assertion Types
//
//   - step_order: the named nodes were evaluated in this relative order
//   - step_count: the named node was evaluated exactly count times
//   - outcome: the named action node reported this outcome
//
// A node is named by runtime id (n3), implementation (ack_action@0.1.0) or
// implementation id (ack_action).
//
// # Deterministic Testing
//
// Every scenario runs in a fresh pipeline with a fixed run id, so the
// snapshot of a run compares byte for byte against its golden file:
//
//	go test ./internal/harness -update
package harness
