package main

import "lumen/internal/stage"

func main() {
	stage.Run()
}
