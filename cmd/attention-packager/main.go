package main

import "github.com/oshokin/attention-check/cmd/attention-packager/cmd"

func main() {
	cmd.Execute()
}
