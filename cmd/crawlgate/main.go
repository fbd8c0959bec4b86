package main

import (
	cmd "github.com/rohmanhakim/crawlgate/internal/cli"
)

func main() {
	cmd.Execute()
}
