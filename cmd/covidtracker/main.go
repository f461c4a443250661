package main

import "rpicovid/cmd/covidtracker/cmd"

func main() {
	cmd.Execute()
}
