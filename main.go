package main

import "github.com/frahmantamala/asset-attestation/cmd"

func main() {
	cmd.Execute()
}
