package main

import "github.com/rasnes/healthcare-etl/cmd"

func main() {
	cmd.Execute()
}
