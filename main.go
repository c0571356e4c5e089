// bwm-bot is a WhatsApp bot that keeps its settings in a JSON document and
// rotates the account's bio on a timer.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
