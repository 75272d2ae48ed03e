// Package main provides the CLI entrypoint for calendar-pulse.
package main

func main() {
	Execute()
}
