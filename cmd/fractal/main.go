package main

import "github.com/Carmen-Shannon/oxy-fractal/cmd/fractal/cmd"

func main() {
	cmd.Execute()
}
