package main

import "github.com/vietddude/dbexec/internal/cli"

func main() {
	cli.Execute()
}
