// SPDX-License-Identifier: MPL-2.0

// thinpack builds relocatable agent bundles for agentless remote execution.
package main

import cmd "github.com/thinpack/thinpack/cmd/thinpack"

func main() {
	cmd.Execute()
}
