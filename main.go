package main

import "github.com/frahmantamala/invoice-management/cmd"

func main() {
	cmd.Execute()
}
