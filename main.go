package main

import "github.com/gaurav-prasanna/sheetpipe/cmd"

func main() {
	cmd.Execute()
}
