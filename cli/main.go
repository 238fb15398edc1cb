package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/hexbotics/nutrunner"
	"github.com/hexbotics/nutrunner/internal/creds"

	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/robot/client"
	"go.viam.com/utils/rpc"
)

var steps = []struct {
	name string
	fn   func(context.Context, *nutrunner.Robot) error
}{
	{"ready", nutrunner.Ready},
	{"grasp-nut", nutrunner.GraspNut},
	{"seat-nut", nutrunner.SeatNut},
	{"grasp-screw", nutrunner.GraspScrew},
	{"approach", nutrunner.ApproachDrive},
	{"tighten", nutrunner.Tighten},
	{"retract", nutrunner.Retract},
}

func stepNames() string {
	names := make([]string, len(steps))
	for i, s := range steps {
		names[i] = s.name
	}
	return strings.Join(names, ", ")
}

func main() {
	credsPath := flag.String("creds", "", "path to robot credentials JSON file")
	step := flag.String("step", "", "single step to run: "+stepNames())
	nonstop := flag.Bool("nonstop", false, "run the full cycle without confirmation prompts")
	flag.Parse()

	logger := logging.NewLogger("nutrunner-cli")

	if *credsPath == "" {
		logger.Fatal("-creds flag is required")
	}

	robotCreds, err := creds.Load(*credsPath)
	if err != nil {
		logger.Fatal(err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	machine, err := client.New(
		ctx,
		robotCreds.Address,
		logger,
		client.WithDialOptions(rpc.WithEntityCredentials(
			robotCreds.EntityID,
			rpc.Credentials{
				Type:    rpc.CredentialsTypeAPIKey,
				Payload: robotCreds.APIKey,
			})),
	)
	if err != nil {
		logger.Fatal(err)
	}
	defer machine.Close(context.Background())

	logger.Info("Connected to robot")

	r, err := nutrunner.NewRobot(ctx, machine, logger, robotCreds.Resources)
	if err != nil {
		logger.Fatal(err)
	}

	if *step != "" {
		runSingleStep(ctx, r, logger, *step)
		return
	}

	// Full cycle with confirmation gates between steps.
	for _, s := range steps {
		if !*nonstop && !confirm(ctx, s.name) {
			logger.Info("Aborted by operator")
			return
		}
		logger.Infof("=== %s ===", s.name)
		if err := s.fn(ctx, r); err != nil {
			logger.Fatal(err)
		}
	}
	logger.Info("Cycle completed successfully")
}

func runSingleStep(ctx context.Context, r *nutrunner.Robot, logger logging.Logger, name string) {
	for _, s := range steps {
		if s.name != name {
			continue
		}
		logger.Infof("=== Running step: %s ===", name)
		if err := s.fn(ctx, r); err != nil {
			logger.Fatal(err)
		}
		logger.Infof("Step %s completed successfully", name)
		return
	}
	logger.Fatalf("unknown step %q; valid steps: %s", name, stepNames())
}

// confirm blocks for an operator keypress before the named step. Returns
// false if stdin closes or the context is cancelled.
func confirm(ctx context.Context, stepName string) bool {
	fmt.Printf("Press Enter to run %s (Ctrl-C to abort)... ", stepName)

	done := make(chan bool, 1)
	go func() {
		_, err := bufio.NewReader(os.Stdin).ReadString('\n')
		done <- err == nil
	}()

	select {
	case <-ctx.Done():
		fmt.Println()
		return false
	case ok := <-done:
		return ok
	}
}
