/*
Recorder journals the simulator's event stream in an append-only, segmented log.

# Module
  - writer: single goroutine appender with size-based segment rotation
  - reader / playback: checksum-verified sequential scan across segments
  - journal: typed appenders that assign the global sequence
  - replay: re-drives market data and orders into an executor

# Source
  - market data from the bus processor
  - orders from submitters
  - execution reports from the report queue

# Produce
  - journal segments consumed by the replay, chaos and state recovery tools
*/
package recorder
