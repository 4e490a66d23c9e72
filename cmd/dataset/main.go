// Command dataset builds ML training datasets from ADCIRC storm surge
// simulation output.
//
// Usage:
//
//	dataset setup  -project-dir ~/NHERI-Published/PRJ-2968 -data-dir data
//	dataset create -name gulf-v2
//
// setup prepares the local data directory once; create runs the distributed
// build, configured through STORMML_* environment variables.
package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "create":
		err = runCreate(os.Args[2:])
	case "setup":
		err = runSetup(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: dataset <create|setup> [flags]")
}
