package main

import "github.com/xiaonanln/streamgraph/cmd/streamgraphctl/commands"

func main() {
	commands.Execute()
}
