// Command desim runs discrete-event simulation scenarios.
package main

import "github.com/sarchlab/desim/desim/cmd"

func main() {
	cmd.Execute()
}
