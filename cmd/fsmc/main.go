// Command fsmc compiles state machines described in YAML into compact
// tables and matchers, and runs them over input.
//
//	fsmc compile --style goto --format go -o words_fsm.go words.yaml
//	fsmc tables words.yaml
//	echo "some words" | fsmc run words.yaml
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
