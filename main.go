package main

import "github.com/redactyl/scangate/cmd/scangate"

func main() { scangate.Execute() }
