// Package engine evaluates an expanded graph once.
//
// A run validates the graph, compiles it into a plan, and evaluates every
// node exactly once in topological order. Ties between independent nodes
// break by runtime id, so a fixed graph and context always evaluate in the
// same order and produce the same report.
//
// Roles:
//
//   - Sources read the execution context and their parameters only.
//   - Computes and Triggers are pure functions of their inputs and
//     parameters.
//   - An Action runs only when every trigger feeding it emitted. Otherwise
//     its outcome is Skipped and it is never called.
//
// Failure is terminal. The first failing node ends the run with one
// ExecutionError, and no report is returned. When an Action fails, the
// actions after it are not attempted and effects already applied stay
// applied.
//
// The engine holds no state between runs. Primitives receive declared
// inputs and resolved parameters only.
package engine
