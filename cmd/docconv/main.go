// Command docconv converts documents between formats.
package main

import "github.com/klytics/docconv/cmd"

func main() {
	cmd.Execute()
}
