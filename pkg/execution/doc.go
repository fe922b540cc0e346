// Package execution holds the operators that sit between table scans, the
// join core and the row receiver.
//
// Every operator is an [iterator.BatchIterator]. Consumers pull with
// MoveNext; when it reports false and AllLoaded is false they call
// LoadNextBatch and pull again. Unary operators forward loading, close and
// kill to their child.
//
// # Sub-packages
//
//   - [dexql/pkg/execution/join]     nested-loop, block nested-loop, hash
//     block and sorted-merge joins with a cost based strategy.
//   - [dexql/pkg/execution/consumer] row receivers, the pipeline driver and
//     the concurrent executor.
//
// # Expressions
//
// Typed plan expressions are compiled once per pipeline into Evaluators that
// read cells of the input row through a Layout. Parameters are bound at
// compile time.
package execution
