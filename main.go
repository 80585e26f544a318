package main

import "github.com/gaurav-prasanna/constpipe/cmd"

func main() {
	cmd.Execute()
}
