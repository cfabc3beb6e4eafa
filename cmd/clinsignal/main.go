// Command clinsignal is the command line interface for the clinical
// narrative pipeline.
package main

import "github.com/clinsignal/clinsignal/internal/interfaces/cli"

func main() {
	cli.Execute()
}
