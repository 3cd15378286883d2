package main

import "github.com/David-Botos/catalog-ingress/cmd"

func main() {
	cmd.Execute()
}
