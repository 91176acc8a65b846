package main

import "github.com/expert-ai/cedar/cmd/cedar/cmd"

func main() {
	cmd.Execute()
}
