package main

import "github.com/mickael31/location-benne-occitanie/cmd/benneadmin/cmd"

func main() {
	cmd.Execute()
}
