// Package allocator assigns sized items (files) to capacity-bounded
// containers (nodes) in one deterministic greedy pass. No container is ever
// filled beyond its capacity; items that do not fit where they are tried are
// reported as unassigned rather than treated as errors.
package allocator
