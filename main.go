// SPDX-License-Identifier: MPL-2.0

package main

import cmd "strata/cmd/strata"

func main() {
	cmd.Execute()
}
