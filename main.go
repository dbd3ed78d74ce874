// Command osnma is a receiver-side Galileo OSNMA authenticator: it
// replays recorded captures, consumes a live Galmon stream, drives the
// embedded serial-line demo protocol, and reports engine state
// (spec.md §6, §8).
package main

import "osnma/cmd"

func main() {
	cmd.Execute()
}
