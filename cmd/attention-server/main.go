package main

import "github.com/oshokin/attention-check/cmd/attention-server/cmd"

func main() {
	cmd.Execute()
}
