package main

import "github.com/f1grid/livetiming-ingest-go/cmd"

func main() {
	cmd.Execute()
}
