// Command timesheetctl drives a timesheet session against a running API.
package main

import (
	"fmt"
	"os"
)

func main() {
	app := NewApp(os.Stdout)
	if err := newRootCmd(app).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
