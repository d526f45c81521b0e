package emergency_test

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jihwankim/cascade-sim/pkg/emergency"
)

// Example demonstrates watching for a sweep-abort condition.
func Example() {
	controller := emergency.New(emergency.Config{
		StopFile:             "./.cascade-sim-stop-example",
		PollInterval:         1 * time.Second,
		EnableSignalHandlers: false,
	})
	os.Remove(controller.StopFilePath())

	controller.OnStop(func(reason string) {
		fmt.Printf("halt triggered: %s\n", reason)
		fmt.Println("flushing in-flight cell results...")
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	controller.Start(ctx)

	fmt.Println("runner started, watching for halt")
	fmt.Printf("create %s to trigger a halt\n", controller.StopFilePath())

	select {
	case <-controller.StopChannel():
		fmt.Println("halt detected via channel")
	case <-time.After(3 * time.Second):
		fmt.Println("no halt triggered (timeout)")
	}

	os.Remove(controller.StopFilePath())

	// Output:
	// runner started, watching for halt
	// create ./.cascade-sim-stop-example to trigger a halt
	// no halt triggered (timeout)
}
