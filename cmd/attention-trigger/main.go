package main

import "github.com/oshokin/attention-check/cmd/attention-trigger/cmd"

func main() {
	cmd.Execute()
}
