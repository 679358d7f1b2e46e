package main

import "github.com/hedge/vaultsync/cmd/vaultctl/cmd"

func main() {
	cmd.Execute()
}
