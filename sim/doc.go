// Package sim provides the core tick-batched flow simulation engine.
//
// # Reading Guide
//
// Start with these three files to understand the simulation kernel:
//   - entity.go: entity variants (belt, splitter, merger, source, sink) and
//     their per-tick transfer rules
//   - engine.go: topology operations, the dirty-set tick loop, and Advance
//   - batch.go: the steady-window solver that fast-forwards many ticks in
//     closed form
//
// # Architecture
//
// The sim package owns the simulation state; supporting concerns live in
// sub-packages:
//   - sim/trace/: progress-trace recording
//   - sim/telemetry/: Prometheus metric export
//
// Both sub-packages implement the engine's Observer interface structurally,
// so they attach with SetObserver without importing sim.
//
// # Determinism
//
// Given the same topology, configuration, and SimulationKey, every run is
// bit-for-bit reproducible. Randomness is confined to synthetic network
// generation (synth.go) and partitioned per subsystem by PartitionedRNG.
package sim
