// =============================================================================
// RPS Batch Decoder - Main Entry Point
// =============================================================================
//
// USAGE:
//   rpsdecode process       - Decode every batch file in the inbox
//   rpsdecode layouts       - Inspect the layout catalog
//   rpsdecode serve         - Start the HTTP upload intake
//   rpsdecode watch         - Process the inbox on a schedule
//   rpsdecode version       - Display the application version
//
// ARCHITECTURE:
//   cmd/            : CLI command definitions (Cobra)
//   internal/       : decoding core, reports, store, intake and server
//   pkg/utils/      : inbox file management
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/rps-batch-decoder/cmd"
)

func main() {
	cmd.Execute()
}
