package main

import (
	"flag"
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/KDSPL/SaveMyEyes/internal/ipc"
)

const adjustStep = 0.05

// runAdjust is an interactive opacity tuner: arrow keys nudge the opacity
// live so the user can find a comfortable level by eye.
func runAdjust(args []string) int {
	fs := flag.NewFlagSet("adjust", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	monitor := fs.String("monitor", "", "display name to adjust (default: global opacity)")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: savemyeyes adjust [--monitor NAME]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Adjust opacity interactively: Up/+ brightens the dimming, Down/-")
		fmt.Fprintln(os.Stderr, "weakens it, q or Escape exits.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Fprintln(os.Stderr, "adjust requires an interactive terminal")
		return 1
	}

	client := ipc.NewClient()
	status, err := client.GetStatus()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	opacity := status.Opacity
	if *monitor != "" {
		if current, ok := monitorOpacity(client, *monitor); ok {
			opacity = current
		}
	}

	oldState, err := term.MakeRaw(int(os.Stdin.Fd()))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to enter raw mode: %v\n", err)
		return 1
	}
	defer term.Restore(int(os.Stdin.Fd()), oldState)

	target := "global"
	if *monitor != "" {
		target = *monitor
	}
	render := func() {
		fmt.Printf("\r\x1b[K%s opacity: %.2f  (Up/Down to adjust, q to quit)", target, opacity)
	}
	render()

	apply := func(delta float64) {
		next := clamp(opacity + delta)
		if next == opacity {
			return
		}
		var err error
		if *monitor == "" {
			err = client.SetOpacity(next)
		} else {
			err = client.SetMonitorOpacity(*monitor, next)
		}
		if err != nil {
			fmt.Printf("\r\x1b[Kerror: %v", err)
			return
		}
		opacity = next
		render()
	}

	buf := make([]byte, 8)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil {
			break
		}
		input := buf[:n]

		if len(input) >= 3 && input[0] == 0x1b && input[1] == '[' {
			switch input[2] {
			case 'A': // Up arrow
				apply(adjustStep)
			case 'B': // Down arrow
				apply(-adjustStep)
			}
			continue
		}

		switch input[0] {
		case '+', '=', 'k':
			apply(adjustStep)
		case '-', '_', 'j':
			apply(-adjustStep)
		case 'q', 0x1b, 0x03: // q, Escape, Ctrl-C
			fmt.Print("\r\n")
			return 0
		}
	}

	fmt.Print("\r\n")
	return 0
}

func monitorOpacity(client *ipc.Client, name string) (float64, bool) {
	monitors, err := client.GetMonitors()
	if err != nil {
		return 0, false
	}
	for _, m := range monitors.Monitors {
		if m.Name == name {
			return m.Opacity, true
		}
	}
	return 0, false
}

func clamp(v float64) float64 {
	if v < 0.0 {
		return 0.0
	}
	if v > 0.9 {
		return 0.9
	}
	return v
}
