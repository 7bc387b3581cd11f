package main

import "github.com/edgeflare/tablegate/cmd/tablegate"

func main() {
	tablegate.Main()
}
