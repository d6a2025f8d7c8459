// Package workers sizes concurrency for CPU-heavy work in containers.
//
// runtime.NumCPU reports the host's CPUs, while GOMAXPROCS (Go 1.19+) follows
// the container's CPU limit, so counts here are derived from GOMAXPROCS:
//
//	n := workers.ForEncoder(4) // half the available CPUs, 1 to 4
//
// Operators can pin the encoder count with ENCODER_WORKERS.
package workers
