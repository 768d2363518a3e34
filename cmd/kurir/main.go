// Command kurir sends a single HTTP request through the kurir client engine
// and prints the response, in the manner of curl.
package main

import (
	"errors"
	"os"
)

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		os.Exit(ExitUsageError)
	}
}
