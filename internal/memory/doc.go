// Package memory sets the Go runtime's soft memory limit in containers.
//
// GOMEMLIMIT is not derived from cgroup limits the way GOMAXPROCS is, so the
// container limit is passed in through the Kubernetes Downward API:
//
//	env:
//	- name: MEMORY_LIMIT
//	  valueFrom:
//	    resourceFieldRef:
//	      resource: limits.memory
//	- name: MEMORY_RATIO
//	  value: "0.4"
//
// Only MEMORY_RATIO of the limit goes to the heap (default 0.5). Encoder
// subprocesses are not counted by the Go runtime and need the remainder.
// An explicit GOMEMLIMIT always wins.
package memory
