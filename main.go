/*
This is an example of application that will use the renderpass
package to compile and inspect execute plans
*/
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/testbed"
)

func main() {
	description := flag.String("description", "testbed/renderpass.toml", "path to a TOML render pass description")
	watch := flag.Bool("watch", false, "rebuild the plan whenever the description changes")
	flag.Parse()

	app := testbed.New(&testbed.Config{
		DescriptionPath: *description,
		Watch:           *watch,
		LogLevel:        core.DebugLevel,
	})

	if err := app.Initialize(); err != nil {
		panic(err)
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	// start shutdown goroutine
	go func() {
		// capture sigterm and other system call here
		<-sigCh
		_ = app.Shutdown()
	}()

	if err := app.Run(); err != nil {
		panic(err)
	}
}
