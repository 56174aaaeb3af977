// Command macc is the CLI entry point for the deterministic configuration
// manager: it parses arguments, wires the core packages together, and maps
// *macc.Error to process exit codes.
package main

func main() {
	Execute()
}
