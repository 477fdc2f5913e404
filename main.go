// Package main provides the entry point for the dataflow-engine CLI.
package main

import "yqhp/dataflow-engine/cmd"

func main() {
	cmd.Execute()
}
